package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local store status",
	Long:  `Display the pending queue size and the last sync checkpoint.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := engine.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Pending queue: %d\n", stats.PendingQueue)
	if stats.LastSync.IsZero() {
		fmt.Println("Last sync:     never")
	} else {
		fmt.Printf("Last sync:     %s\n", stats.LastSync.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Schema:        v%s\n", stats.SchemaVersion)

	summary, err := engine.Store().QueueSummary()
	if err != nil {
		return err
	}
	if summary.Total > 0 {
		fmt.Println("\nQueued mutations:")
		for entity, n := range summary.ByType {
			fmt.Printf("  %-22s %d\n", entity, n)
		}
	}
	return nil
}
