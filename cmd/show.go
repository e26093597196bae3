package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/futari/internal/quickmsg"
	"github.com/zjrosen/futari/internal/registry"
)

var (
	showCounts bool
	showKind   string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a pair's registries in display order",
	Long:  `Prints every registry entry for the pair, one kind at a time, in the order the app displays them. With --counts each entry also shows how many records reference it, which is the number a cascade delete would null out.`,
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showCounts, "counts", false,
		"also count records referencing each entry")
	showCmd.Flags().StringVar(&showKind, "kind", "",
		"limit to one registry kind (scheduleCategories or dinnerStatuses)")
	rootCmd.AddCommand(showCmd)
}

// selectedKinds resolves the --kind flag against the known kinds.
func selectedKinds() ([]registry.Kind, error) {
	if showKind == "" {
		return registry.Kinds(), nil
	}
	for _, kind := range registry.Kinds() {
		if string(kind) == showKind {
			return []registry.Kind{kind}, nil
		}
	}
	return nil, fmt.Errorf("unknown kind %q (want scheduleCategories or dinnerStatuses)", showKind)
}

func runShow(cmd *cobra.Command, args []string) error {
	pairID, err := requirePair()
	if err != nil {
		return err
	}
	kinds, err := selectedKinds()
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

	shutdown, err := newTracing(ctx)
	if err != nil {
		return err
	}
	defer shutdown()

	for _, kind := range kinds {
		store, err := openRegistry(ctx, docs, pairID, kind)
		if err != nil {
			return err
		}

		reg := store.Snapshot()
		fmt.Printf("%s (%d entries)\n", kind, reg.Len())
		for i, key := range reg.Order {
			if !showCounts {
				fmt.Printf("  %2d. %s  [%s]\n", i+1, reg.Labels[key], key)
				continue
			}
			count, err := store.UsageCount(ctx, key)
			if err != nil {
				store.Close()
				return fmt.Errorf("counting %s usages: %w", key, err)
			}
			fmt.Printf("  %2d. %s  [%s]  %d in use\n", i+1, reg.Labels[key], key, count)
		}
		if !reg.UpdatedAt.IsZero() {
			fmt.Printf("  updated %s\n", reg.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Println()
		store.Close()
	}

	if showKind != "" {
		return nil
	}

	msgs := quickmsg.NewStore(docs, pairID)
	if err := msgs.Open(ctx); err != nil {
		return fmt.Errorf("opening quick messages: %w", err)
	}
	defer msgs.Close()

	list := msgs.Messages()
	fmt.Printf("quickMessages (%d entries)\n", len(list))
	for i, m := range list {
		fmt.Printf("  %2d. %s\n", i+1, m)
	}
	return nil
}
