package docstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetMissing(t *testing.T) {
	store := NewMemory()

	_, err := store.Get(context.Background(), "pairs/p1/settings/scheduleCategories")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_SetThenGet(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	err := store.Set(ctx, "pairs/p1/settings/scheduleCategories", Fields{
		"labels": map[string]any{"remote": "在宅勤務"},
		"_order": []string{"remote"},
	})
	require.NoError(t, err)

	doc, err := store.Get(ctx, "pairs/p1/settings/scheduleCategories")
	require.NoError(t, err)
	require.True(t, doc.Exists)
	require.Equal(t, []string{"remote"}, doc.Fields["_order"])
}

func TestMemory_UpdateMergesFields(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pairs/p1/settings/x", Fields{"a": 1, "b": 2}))
	require.NoError(t, store.Update(ctx, "pairs/p1/settings/x", Fields{"b": 3}))

	doc, err := store.Get(ctx, "pairs/p1/settings/x")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Fields["a"])
	require.Equal(t, 3, doc.Fields["b"])
}

func TestMemory_ServerTimestampResolved(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pairs/p1/settings/x", Fields{"updatedAt": ServerTimestamp}))

	doc, err := store.Get(ctx, "pairs/p1/settings/x")
	require.NoError(t, err)
	_, isSentinel := doc.Fields["updatedAt"].(serverTimestamp)
	require.False(t, isSentinel, "sentinel should be replaced by a concrete time")
}

func TestMemory_SubscribeDeliversCurrentAndChanges(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	path := "pairs/p1/settings/scheduleCategories"

	var seen []Document
	cancel := store.Subscribe(path, func(d Document) { seen = append(seen, d) }, nil)
	defer cancel()

	require.Len(t, seen, 1, "initial snapshot delivered on subscribe")
	require.False(t, seen[0].Exists)

	require.NoError(t, store.Set(ctx, path, Fields{"labels": map[string]any{"k": "v"}}))
	require.Len(t, seen, 2)
	require.True(t, seen[1].Exists)
}

func TestMemory_CancelStopsDelivery(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	path := "pairs/p1/settings/x"

	count := 0
	cancel := store.Subscribe(path, func(Document) { count++ }, nil)
	require.Equal(t, 1, count)

	cancel()
	cancel() // second cancel is a no-op

	require.NoError(t, store.Set(ctx, path, Fields{"a": 1}))
	require.Equal(t, 1, count)
}

func TestMemory_QueryWhere(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pairs/p1/schedules/s1", Fields{"category": "remote"}))
	require.NoError(t, store.Set(ctx, "pairs/p1/schedules/s2", Fields{"category": "office"}))
	require.NoError(t, store.Set(ctx, "pairs/p1/schedules/s3", Fields{"category": "remote"}))
	// Different pair, same field value: must not match.
	require.NoError(t, store.Set(ctx, "pairs/p2/schedules/s9", Fields{"category": "remote"}))

	docs, err := store.QueryWhere(ctx, "pairs/p1/schedules", "category", "remote")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "pairs/p1/schedules/s1", docs[0].Path)
	require.Equal(t, "pairs/p1/schedules/s3", docs[1].Path)
}

func TestMemory_BatchUpdateAtomicAndNotifying(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "pairs/p1/schedules/s1", Fields{"category": "k"}))
	require.NoError(t, store.Set(ctx, "pairs/p1/schedules/s2", Fields{"category": "k"}))

	err := store.BatchUpdate(ctx, []Update{
		{Path: "pairs/p1/schedules/s1", Fields: Fields{"category": nil}},
		{Path: "pairs/p1/schedules/s2", Fields: Fields{"category": nil}},
	})
	require.NoError(t, err)

	for _, p := range []string{"pairs/p1/schedules/s1", "pairs/p1/schedules/s2"} {
		doc, err := store.Get(ctx, p)
		require.NoError(t, err)
		require.Nil(t, doc.Fields["category"])
	}
}

func TestMemory_BatchUpdateRejectsOversizedGroup(t *testing.T) {
	store := NewMemory()

	updates := make([]Update, BatchLimit+1)
	for i := range updates {
		updates[i] = Update{Path: "pairs/p1/schedules/s", Fields: Fields{}}
	}
	require.Error(t, store.BatchUpdate(context.Background(), updates))
}

func TestMemory_FailWrites(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	boom := errors.New("permission denied")

	store.FailWrites(boom)
	require.ErrorIs(t, store.Set(ctx, "pairs/p1/settings/x", Fields{}), boom)
	require.Equal(t, 0, store.WriteCount())

	store.FailWrites(nil)
	require.NoError(t, store.Set(ctx, "pairs/p1/settings/x", Fields{}))
	require.Equal(t, 1, store.WriteCount())
}

func TestMemory_FailWritesAfter(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	boom := errors.New("quota exceeded")

	store.FailWritesAfter(2, boom)
	require.NoError(t, store.Set(ctx, "pairs/p1/settings/a", Fields{}))
	require.NoError(t, store.Set(ctx, "pairs/p1/settings/b", Fields{}))
	require.ErrorIs(t, store.Set(ctx, "pairs/p1/settings/c", Fields{}), boom)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	path := "pairs/p1/settings/x"

	require.NoError(t, store.Set(ctx, path, Fields{"labels": map[string]any{"k": "v"}}))

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	doc.Fields["labels"].(map[string]any)["k"] = "mutated"

	again, err := store.Get(ctx, path)
	require.NoError(t, err)
	require.Equal(t, "v", again.Fields["labels"].(map[string]any)["k"])
}
