package quickmsg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/pair"
)

const testPair pair.ID = "p1"

func openStore(t *testing.T, docs *docstore.Memory) *Store {
	t.Helper()
	s := NewStore(docs, testPair)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(s.Close)
	return s
}

func TestStore_DefaultsWhenAbsent(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)

	require.Equal(t, DefaultMessages, s.Messages())
}

func TestStore_SaveAndReload(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []string{"帰ります", "了解"}))
	require.Equal(t, []string{"帰ります", "了解"}, s.Messages())

	// A second store over the same document sees the saved list.
	other := openStore(t, docs)
	require.Equal(t, []string{"帰ります", "了解"}, other.Messages())
}

func TestStore_SaveDropsBlankEntries(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)

	require.NoError(t, s.Save(context.Background(), []string{" 了解 ", "", "   "}))
	require.Equal(t, []string{"了解"}, s.Messages())
}

func TestStore_SaveBounds(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)
	ctx := context.Background()
	before := docs.WriteCount()

	var capErr *CapacityError
	require.ErrorAs(t, s.Save(ctx, nil), &capErr)
	require.Equal(t, 0, capErr.Size)

	tooMany := make([]string, MaxMessages+1)
	for i := range tooMany {
		tooMany[i] = "msg"
	}
	require.ErrorAs(t, s.Save(ctx, tooMany), &capErr)
	require.Equal(t, MaxMessages+1, capErr.Size)

	require.Equal(t, before, docs.WriteCount(), "bound violations must not write")
}

func TestStore_SaveWriteFailureLeavesList(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)

	docs.FailWrites(errors.New("offline"))
	err := s.Save(context.Background(), []string{"了解"})

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, DefaultMessages, s.Messages())
}

func TestStore_AddRemoveReorder(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []string{"a", "b", "c"}))

	require.NoError(t, s.Add(ctx, "d"))
	require.Equal(t, []string{"a", "b", "c", "d"}, s.Messages())

	require.NoError(t, s.Remove(ctx, 1))
	require.Equal(t, []string{"a", "c", "d"}, s.Messages())

	require.NoError(t, s.Reorder(ctx, 2, 0))
	require.Equal(t, []string{"d", "a", "c"}, s.Messages())

	require.NoError(t, s.Reorder(ctx, 0, 2))
	require.Equal(t, []string{"a", "c", "d"}, s.Messages())
}

func TestStore_RemoveOutOfRange(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)
	ctx := context.Background()

	require.Error(t, s.Remove(ctx, -1))
	require.Error(t, s.Remove(ctx, len(DefaultMessages)))
	require.Equal(t, DefaultMessages, s.Messages())
}

func TestStore_RemoveAtMinimum(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []string{"了解"}))

	var capErr *CapacityError
	require.ErrorAs(t, s.Remove(ctx, 0), &capErr)
	require.Equal(t, []string{"了解"}, s.Messages())
}

func TestStore_AddAtMaximum(t *testing.T) {
	docs := docstore.NewMemory()
	s := openStore(t, docs)
	ctx := context.Background()

	full := make([]string, MaxMessages)
	for i := range full {
		full[i] = "msg"
	}
	require.NoError(t, s.Save(ctx, full))

	var capErr *CapacityError
	require.ErrorAs(t, s.Add(ctx, "one more"), &capErr)
	require.Len(t, s.Messages(), MaxMessages)
}

func TestStore_PartnerChangesPropagate(t *testing.T) {
	docs := docstore.NewMemory()
	mine := openStore(t, docs)
	partner := openStore(t, docs)

	require.NoError(t, partner.Save(context.Background(), []string{"お疲れ様", "了解"}))
	require.Equal(t, []string{"お疲れ様", "了解"}, mine.Messages())
}

func TestStore_MalformedDocumentDegradesToDefaults(t *testing.T) {
	docs := docstore.NewMemory()
	docs.Seed(pair.SettingsDoc(testPair, settingsDoc), docstore.Fields{
		"messages": "not a list",
	})

	s := openStore(t, docs)
	require.Equal(t, DefaultMessages, s.Messages())
}
