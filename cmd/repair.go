package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/futari/internal/registry"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Null out references to deleted registry entries",
	Long:  `Scans the pair's schedules and dinner statuses for references to registry keys that no longer exist and nulls them out. Dangling references appear when a cascade delete was interrupted partway; repair finishes the job. Safe to run repeatedly.`,
	RunE:  runRepair,
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	pairID, err := requirePair()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	docs, cleanup, err := newDocstore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	shutdown, err := newTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	total := 0
	for _, kind := range registry.Kinds() {
		store, err := openRegistry(ctx, docs, pairID, kind)
		if err != nil {
			return err
		}

		nulled, err := store.Repair(ctx)
		store.Close()
		if err != nil {
			return fmt.Errorf("repairing %s: %w", kind, err)
		}

		fmt.Printf("%s: %d dangling reference(s) nulled\n", kind, nulled)
		total += nulled
	}

	if total == 0 {
		fmt.Println("nothing to repair")
	}
	return nil
}
