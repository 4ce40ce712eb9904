package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// GeminiAPIKey enables the optional AI debrief when set.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	// DBPath is the sqlite file backing session persistence.
	DBPath string `env:"BURNS_DB_PATH" envDefault:".saves/burns.db"`
	// LogFile receives structured logs; empty disables logging. The
	// terminal itself belongs to the UI.
	LogFile  string `env:"BURNS_LOG_FILE"`
	LogLevel string `env:"BURNS_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment, with a local .env file
// applied first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
