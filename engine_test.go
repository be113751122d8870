package dealersync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineOfflineLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "engine.db")

	engine, err := New(cfg, nil)
	require.NoError(t, err)
	defer engine.Close()

	// Offline: local writes queue up, sync is unavailable.
	require.NoError(t, engine.Store().SaveUser(User{ID: uuid.New(), DealerID: uuid.New(), Name: "offline"}))
	assert.ErrorIs(t, engine.Sync(context.Background()), ErrOffline)

	stats, err := engine.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingQueue)
	assert.Equal(t, PhaseIdle, engine.State().Phase)
}

func TestEngineRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoteURL = "https://backend.example.com" // no api key, no dealer

	_, err := New(cfg, nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
