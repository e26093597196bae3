package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/futari/internal/registry"
)

var seedOverwrite bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write the default registries for a pair",
	Long:  `Writes the compiled-in default schedule categories and dinner statuses for the pair. New pairs do not need this (the app falls back to the defaults when no document exists), but seeding makes the documents visible in the Firestore console. Existing registries are left alone unless --overwrite is given.`,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedOverwrite, "overwrite", false,
		"replace existing registries with the defaults")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	pairID, err := requirePair()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	docs, cleanup, err := newDocstore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, kind := range registry.Kinds() {
		err := registry.Seed(ctx, docs, pairID, kind, seedOverwrite)
		switch {
		case errors.Is(err, registry.ErrAlreadySeeded):
			fmt.Printf("%s: already customized, skipped (use --overwrite to replace)\n", kind)
		case err != nil:
			return err
		default:
			fmt.Printf("%s: %d default entries written\n", kind, registry.Default(kind).Len())
		}
	}
	return nil
}
