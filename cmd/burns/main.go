package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gkfit2025/Burns/internal/catalog"
	"github.com/Gkfit2025/Burns/internal/config"
	"github.com/Gkfit2025/Burns/internal/debrief"
	"github.com/Gkfit2025/Burns/internal/engine"
	"github.com/Gkfit2025/Burns/internal/store"
	"github.com/Gkfit2025/Burns/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	cat, err := catalog.Load()
	if err != nil {
		// A malformed catalog is a build defect, not a runtime condition.
		return fmt.Errorf("load scenario content: %w", err)
	}

	kv, err := store.NewSQLiteKV(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer kv.Close()

	adapter := store.NewAdapter(kv, log)
	defer adapter.Close()

	eng := engine.New(cat, engine.WithSaver(adapter), engine.WithLogger(log))
	if saved, err := adapter.Load(); err != nil {
		log.Warn().Err(err).Msg("loading saved session")
	} else if saved != nil {
		if err := eng.Restore(*saved); err != nil {
			log.Warn().Err(err).Msg("saved session no longer valid, starting fresh")
		}
	}

	tickCtx, stopTicker := context.WithCancel(ctx)
	defer stopTicker()
	go engine.NewController(eng).Run(tickCtx)

	var db *debrief.Engine
	if cfg.GeminiAPIKey != "" {
		db, err = debrief.NewEngine(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Warn().Err(err).Msg("debrief unavailable")
			db = nil
		} else {
			defer db.Close()
		}
	}

	return tui.Run(eng, db)
}

func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("parse log level: %w", err)
	}

	// The terminal belongs to the TUI, so logs go to a file or nowhere.
	var w io.Writer = io.Discard
	closeLog := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeLog = func() { f.Close() }
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, closeLog, nil
}
