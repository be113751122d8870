package dealersync

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds the engine configuration.
type Config struct {
	// DBPath is the local SQLite database location.
	DBPath string

	// RemoteURL is the backend base URL. Empty means offline mode: local
	// writes queue up and sync is unavailable until a URL is configured.
	RemoteURL string

	// APIKey authenticates RPC calls.
	APIKey string

	// DealerID scopes every operation to one tenant.
	DealerID uuid.UUID

	// SyncInterval is the suggested period for background sync triggers.
	SyncInterval time.Duration

	// Debug enables verbose logging.
	Debug bool
}

// fileConfig is the on-disk/env shape before parsing.
type fileConfig struct {
	DBPath       string        `mapstructure:"db_path"`
	RemoteURL    string        `mapstructure:"remote_url"`
	APIKey       string        `mapstructure:"api_key"`
	DealerID     string        `mapstructure:"dealer_id"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	Debug        bool          `mapstructure:"debug"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DBPath:       filepath.Join(home, ".dealersync", "dealersync.db"),
		SyncInterval: 5 * time.Minute,
	}
}

// LoadConfig reads configuration from a dealersync.yaml in configDir (or
// the current directory when configDir is empty) merged with DEALERSYNC_*
// environment variables. Missing config files are fine; defaults apply.
func LoadConfig(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("dealersync")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dealersync"))
		}
	}

	v.SetEnvPrefix("DEALERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key gets a default so AutomaticEnv can surface it through
	// Unmarshal.
	defaults := DefaultConfig()
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("sync_interval", defaults.SyncInterval)
	v.SetDefault("remote_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("dealer_id", "")
	v.SetDefault("debug", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var raw fileConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, err
	}

	cfg := &Config{
		DBPath:       raw.DBPath,
		RemoteURL:    strings.TrimSuffix(raw.RemoteURL, "/"),
		APIKey:       raw.APIKey,
		SyncInterval: raw.SyncInterval,
		Debug:        raw.Debug,
	}
	if raw.DealerID != "" {
		id, err := uuid.Parse(raw.DealerID)
		if err != nil {
			return nil, &ValidationError{Field: "dealer_id", Message: "must be a UUID"}
		}
		cfg.DealerID = id
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return &ValidationError{Field: "db_path", Message: "must be set"}
	}
	if c.SyncInterval < 0 {
		return &ValidationError{Field: "sync_interval", Message: "must not be negative"}
	}
	if c.RemoteURL != "" {
		if c.APIKey == "" {
			return &ValidationError{Field: "api_key", Message: "required when remote_url is set"}
		}
		if c.DealerID == uuid.Nil {
			return &ValidationError{Field: "dealer_id", Message: "required when remote_url is set"}
		}
	}
	return nil
}

// IsOffline reports whether no remote backend is configured.
func (c *Config) IsOffline() bool {
	return c.RemoteURL == ""
}
