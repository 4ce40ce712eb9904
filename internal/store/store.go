// Package store persists the session state as a versioned JSON blob in a
// durable key-value backend. Writes are asynchronous and latest-wins so
// the interactive loop never blocks on storage.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Gkfit2025/Burns/internal/models"
	"github.com/rs/zerolog"
)

// KV is the minimal durable key-value surface the adapter needs. The
// sqlite backend implements it for real use, MemoryKV for tests.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

const stateKey = "session"

// schemaVersion guards the persisted shape. A record written by any
// other version is treated as absent on load, never partially hydrated.
const schemaVersion = 1

type envelope struct {
	Version int                 `json:"version"`
	State   models.SessionState `json:"state"`
}

// Adapter mirrors session state into a KV backend. Save and Clear are
// fire-and-forget; Load is synchronous and only meant for startup.
type Adapter struct {
	kv  KV
	log zerolog.Logger

	// pending holds at most one queued write; a nil state means delete.
	// Newer writes replace stale queued ones.
	pending   chan *models.SessionState
	done      chan struct{}
	closeOnce sync.Once
}

func NewAdapter(kv KV, log zerolog.Logger) *Adapter {
	a := &Adapter{
		kv:      kv,
		log:     log,
		pending: make(chan *models.SessionState, 1),
		done:    make(chan struct{}),
	}
	go a.writeLoop()
	return a
}

func (a *Adapter) writeLoop() {
	defer close(a.done)
	for st := range a.pending {
		if st == nil {
			if err := a.kv.Delete(stateKey); err != nil {
				a.log.Error().Err(err).Msg("clear session state")
			}
			continue
		}
		if err := a.write(*st); err != nil {
			a.log.Error().Err(err).Msg("save session state")
		}
	}
}

func (a *Adapter) write(st models.SessionState) error {
	data, err := json.Marshal(envelope{Version: schemaVersion, State: st})
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	return a.kv.Set(stateKey, data)
}

// enqueue replaces any stale queued write with the new one.
func (a *Adapter) enqueue(st *models.SessionState) {
	for {
		select {
		case a.pending <- st:
			return
		default:
			select {
			case <-a.pending:
			default:
			}
		}
	}
}

// Save queues the state for durable storage, overwriting the prior value.
func (a *Adapter) Save(st models.SessionState) {
	c := st.Clone()
	a.enqueue(&c)
}

// Clear queues removal of the stored state.
func (a *Adapter) Clear() {
	a.enqueue(nil)
}

// Load reads back the stored state. A missing, corrupt, or
// wrong-version record yields (nil, nil): the session starts fresh
// rather than crashing on bad durable data.
func (a *Adapter) Load() (*models.SessionState, error) {
	data, ok, err := a.kv.Get(stateKey)
	if err != nil {
		return nil, fmt.Errorf("read session state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		a.log.Warn().Err(err).Msg("stored session state is malformed, starting fresh")
		return nil, nil
	}
	if env.Version != schemaVersion {
		a.log.Warn().Int("version", env.Version).Msg("stored session state has unknown schema version, starting fresh")
		return nil, nil
	}
	st := env.State.Clone()
	return &st, nil
}

// Close flushes queued writes and stops the writer.
func (a *Adapter) Close() {
	a.closeOnce.Do(func() {
		close(a.pending)
		<-a.done
	})
}
