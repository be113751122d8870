package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Compare local data against the backend",
	Long: `Generate a report of local versus remote live-row counts per entity
type, plus the pending queue breakdown. Nothing is mutated.`,
	RunE: runDiagnostics,
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := newEngine()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := engine.Diagnostics(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Generated: %s\n", report.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
	if report.LastSyncAt != nil {
		fmt.Printf("Last sync: %s\n", report.LastSyncAt.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Last sync: never")
	}
	fmt.Printf("Queue:     %d pending\n", report.QueueSummary.Total)
	if report.RemoteFetchError != "" {
		fmt.Printf("Remote:    unavailable (%s)\n", report.RemoteFetchError)
	}

	fmt.Println("\nEntity counts (local / remote):")
	for _, count := range report.EntityCounts {
		remoteCol := "-"
		if count.RemoteCount != nil {
			remoteCol = fmt.Sprintf("%d", *count.RemoteCount)
		}
		marker := ""
		if count.RemoteCount != nil && *count.RemoteCount != count.LocalCount {
			marker = "  <- mismatch"
		}
		fmt.Printf("  %-22s %6d / %6s%s\n", count.Entity, count.LocalCount, remoteCol, marker)
	}
	return nil
}
