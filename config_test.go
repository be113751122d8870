package dealersync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
	assert.True(t, cfg.IsOffline())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DBPath)
	assert.True(t, cfg.IsOffline())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	dealerID := uuid.New()
	content := "db_path: /tmp/dealer.db\n" +
		"remote_url: https://backend.example.com/\n" +
		"api_key: sk-test\n" +
		"dealer_id: " + dealerID.String() + "\n" +
		"sync_interval: 90s\n" +
		"debug: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dealersync.yaml"), []byte(content), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/dealer.db", cfg.DBPath)
	assert.Equal(t, "https://backend.example.com", cfg.RemoteURL, "trailing slash trimmed")
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, dealerID, cfg.DealerID)
	assert.Equal(t, 90*time.Second, cfg.SyncInterval)
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.IsOffline())
}

func TestLoadConfigRejectsBadDealerID(t *testing.T) {
	dir := t.TempDir()
	content := "dealer_id: not-a-uuid\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dealersync.yaml"), []byte(content), 0o644))

	_, err := LoadConfig(dir)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dealer_id", verr.Field)
}

func TestValidateRemoteRequiresCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoteURL = "https://backend.example.com"

	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Equal(t, "api_key", verr.Field)

	cfg.APIKey = "sk-test"
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Equal(t, "dealer_id", verr.Field)

	cfg.DealerID = uuid.New()
	assert.NoError(t, cfg.Validate())
}
