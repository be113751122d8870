package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass",
	Long: `Drain the outbound queue, fetch remote changes since the last
checkpoint and merge them into the local database.

Example:
  dealersync sync          # Incremental sync
  dealersync sync --full   # Refetch the full history`,
	RunE: runSync,
}

var syncFull bool

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "Refetch the full history instead of the delta")
}

func runSync(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	if syncFull {
		fmt.Println("Resynchronizing full history...")
		err = engine.Resync(ctx)
	} else {
		fmt.Println("Synchronizing...")
		err = engine.Sync(ctx)
	}
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Printf("Sync complete (took %s)\n", time.Since(start).Round(time.Millisecond))
	return nil
}
