package cmd

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/zjrosen/futari/internal/config"
	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/log"
	"github.com/zjrosen/futari/internal/pair"
	"github.com/zjrosen/futari/internal/registry"
	"github.com/zjrosen/futari/internal/tracing"
)

// requirePair validates the --pair flag shared by all subcommands.
func requirePair() (pair.ID, error) {
	if pairFlag == "" {
		return "", fmt.Errorf("--pair is required")
	}
	return pair.ID(pairFlag), nil
}

// memStore is the process-wide store backing --memory runs, shared so
// a seed followed by a show in the same process observes the writes.
var memStore *docstore.Memory

// newDocstore builds the document store the subcommands operate on:
// Firestore per the config, or an in-memory store with --memory.
// The returned cleanup must be called before exit.
func newDocstore(ctx context.Context) (docstore.Store, func(), error) {
	if useMemory {
		if memStore == nil {
			memStore = docstore.NewMemory()
		}
		log.Info(log.CatCLI, "using in-memory document store")
		return memStore, func() {}, nil
	}

	if err := config.ValidateFirestore(cfg.Firestore); err != nil {
		return nil, nil, err
	}

	project := cfg.Firestore.Project
	if cfg.Firestore.EmulatorHost != "" {
		// The Firestore client picks the emulator up from the environment.
		_ = os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost)
		if project == "" {
			project = "futari-local"
		}
	}

	var opts []option.ClientOption
	if cfg.Firestore.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to firestore: %w", err)
	}

	log.Info(log.CatCLI, "connected to firestore", "project", project)
	return docstore.NewFirestore(client), func() { _ = client.Close() }, nil
}

// newTracing builds the trace provider from config and returns its
// shutdown function.
func newTracing(ctx context.Context) (func(), error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return func() { _ = provider.Shutdown(ctx) }, nil
}

// openRegistry opens the registry store for one kind and blocks until
// its first snapshot.
func openRegistry(ctx context.Context, docs docstore.Store, pairID pair.ID, kind registry.Kind) (*registry.Store, error) {
	store := registry.NewStore(docs, pairID, kind,
		registry.WithUsageCountTTL(cfg.Registry.UsageCountTTL))
	if err := store.Open(ctx); err != nil {
		return nil, fmt.Errorf("opening %s registry: %w", kind, err)
	}
	return store, nil
}
