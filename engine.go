// Package dealersync is an offline-first synchronization engine for a
// dealership's business data. Local writes land in SQLite together with a
// durable outbound queue; sync passes drain the queue, fetch the remote
// delta and merge it deterministically.
package dealersync

import (
	"context"

	"go.uber.org/zap"

	"github.com/motorlot/dealersync/internal/remote"
)

// Engine bundles the local store and the sync orchestrator behind one
// constructor, which is how most callers want them.
type Engine struct {
	store *Store
	orch  *Orchestrator
	log   *zap.Logger
}

// New creates an engine from configuration. A nil logger disables logging.
// With no remote configured the engine works offline: writes queue up and
// Sync returns ErrOffline.
func New(cfg *Config, log *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var client remote.Client
	if !cfg.IsOffline() {
		client = remote.NewHTTPClient(cfg.RemoteURL, cfg.APIKey)
	}

	return &Engine{
		store: store,
		orch:  NewOrchestrator(store, client, cfg.DealerID, log),
		log:   log,
	}, nil
}

// Store exposes the local store for entity reads and writes.
func (e *Engine) Store() *Store { return e.store }

// Sync runs one sync pass.
func (e *Engine) Sync(ctx context.Context) error { return e.orch.Sync(ctx) }

// Resync runs a sync pass that refetches the full history.
func (e *Engine) Resync(ctx context.Context) error { return e.orch.Resync(ctx) }

// State returns the current sync state.
func (e *Engine) State() SyncState { return e.orch.State() }

// Subscribe returns a channel receiving sync state transitions.
func (e *Engine) Subscribe() <-chan SyncState { return e.orch.Subscribe() }

// Diagnostics compares local data against the backend.
func (e *Engine) Diagnostics(ctx context.Context) (*DiagnosticsReport, error) {
	return e.orch.Diagnostics(ctx)
}

// Stats returns local store statistics.
func (e *Engine) Stats() (*StoreStats, error) { return e.store.Stats() }

// Close closes the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}
