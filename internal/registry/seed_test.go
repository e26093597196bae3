package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/pair"
)

func TestSeed_WritesDefaults(t *testing.T) {
	docs := docstore.NewMemory()
	ctx := context.Background()

	require.NoError(t, Seed(ctx, docs, "p1", KindScheduleCategory, false))

	doc, err := docs.Get(ctx, pair.SettingsDoc("p1", KindScheduleCategory.SettingsDoc()))
	require.NoError(t, err)

	got := Reconcile(KindScheduleCategory, doc)
	def := Default(KindScheduleCategory)
	require.Equal(t, def.Labels, got.Labels)
	require.Equal(t, def.Order, got.Order)
	require.False(t, got.UpdatedAt.IsZero())
}

func TestSeed_RefusesExistingWithoutOverwrite(t *testing.T) {
	docs := docstore.NewMemory()
	ctx := context.Background()
	path := pair.SettingsDoc("p1", KindDinnerStatus.SettingsDoc())
	docs.Seed(path, docstore.Fields{
		"labels": map[string]any{"c_custom": "外食"},
		"_order": []any{"c_custom"},
	})

	err := Seed(ctx, docs, "p1", KindDinnerStatus, false)
	require.ErrorIs(t, err, ErrAlreadySeeded)

	// Customization survives.
	doc, err := docs.Get(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "外食", Reconcile(KindDinnerStatus, doc).Labels["c_custom"])

	// Overwrite replaces it with the defaults.
	require.NoError(t, Seed(ctx, docs, "p1", KindDinnerStatus, true))
	doc, err = docs.Get(ctx, path)
	require.NoError(t, err)

	got := Reconcile(KindDinnerStatus, doc)
	def := Default(KindDinnerStatus)
	require.Equal(t, def.Labels, got.Labels)
	require.Equal(t, def.Order, got.Order)
}
