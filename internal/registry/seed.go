package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/pair"
)

// ErrAlreadySeeded is returned by Seed when the pair already has a
// persisted registry and overwrite is false.
var ErrAlreadySeeded = errors.New("registry: pair already has a persisted registry")

// Seed writes the compiled-in default registry for (pair, kind). New
// pairs work fine without one since Reconcile degrades to the defaults,
// but seeding makes the document visible to tooling and pins the
// defaults the pair started from.
func Seed(ctx context.Context, docs docstore.Store, pairID pair.ID, kind Kind, overwrite bool) error {
	path := pair.SettingsDoc(pairID, kind.SettingsDoc())

	if !overwrite {
		_, err := docs.Get(ctx, path)
		if err == nil {
			return fmt.Errorf("seed %s for %s: %w", kind, pairID, ErrAlreadySeeded)
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("seed %s for %s: %w", kind, pairID, err)
		}
	}

	def := Default(kind)
	err := docs.Set(ctx, path, docstore.Fields{
		fieldLabels:    labelsField(def.Labels),
		fieldOrder:     orderField(def.Order),
		fieldUpdatedAt: docstore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("seed %s for %s: %w", kind, pairID, err)
	}
	return nil
}
