package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/motorlot/dealersync"
)

var (
	cfgDBPath    string
	cfgRemoteURL string
	cfgAPIKey    string
	cfgDealerID  string
	cfgDir       string
	cfgDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "dealersync",
	Short: "DealerSync - offline-first dealership data sync",
	Long: `DealerSync keeps a car dealership's local business database in step
with the central backend: local writes queue up durably while offline and
flow out on the next sync, remote changes merge in deterministically.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDBPath, "db-path", "", "Path to local database (default: ~/.dealersync/dealersync.db)")
	rootCmd.PersistentFlags().StringVar(&cfgRemoteURL, "remote-url", "", "Backend base URL")
	rootCmd.PersistentFlags().StringVar(&cfgAPIKey, "api-key", "", "API key for backend authentication")
	rootCmd.PersistentFlags().StringVar(&cfgDealerID, "dealer-id", "", "Dealer tenant UUID")
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config-dir", "", "Directory holding dealersync.yaml")
	rootCmd.PersistentFlags().BoolVar(&cfgDebug, "debug", false, "Enable verbose logging")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(diagnosticsCmd)
}

func loadConfig() (*dealersync.Config, error) {
	cfg, err := dealersync.LoadConfig(cfgDir)
	if err != nil {
		return nil, err
	}

	// Flags override file and environment.
	if cfgDBPath != "" {
		cfg.DBPath = cfgDBPath
	}
	if cfgRemoteURL != "" {
		cfg.RemoteURL = cfgRemoteURL
	}
	if cfgAPIKey != "" {
		cfg.APIKey = cfgAPIKey
	}
	if cfgDealerID != "" {
		id, err := uuid.Parse(cfgDealerID)
		if err != nil {
			return nil, fmt.Errorf("invalid --dealer-id: %w", err)
		}
		cfg.DealerID = id
	}
	if cfgDebug {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *dealersync.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newEngine builds the engine from configuration. The returned cleanup
// closes the store and flushes the logger.
func newEngine() (*dealersync.Engine, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	engine, err := dealersync.New(cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, fmt.Errorf("initialize engine: %w", err)
	}

	cleanup := func() {
		_ = engine.Close()
		_ = log.Sync()
	}
	return engine, cleanup, nil
}
