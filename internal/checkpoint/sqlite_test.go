package checkpoint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateCheckpoint(ctx, "/project/main.go", "package main\n", "before edit", "tool:write_file")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	cp, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "/project/main.go", cp.FilePath)
	require.Equal(t, "package main\n", cp.Content)
	require.Equal(t, "before edit", cp.Description)
	require.Equal(t, "tool:write_file", cp.TriggerEvent)
	require.False(t, cp.CreatedAt.IsZero())
}

func TestGetUnknownID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestHistoryNeverOverwritten(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateCheckpoint(ctx, "/project/a.go", "v1", "", "manual")
	require.NoError(t, err)
	second, err := store.CreateCheckpoint(ctx, "/project/a.go", "v2", "", "manual")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	history, err := store.ListForFile(ctx, "/project/a.go")
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Both versions remain retrievable.
	contents := []string{history[0].Content, history[1].Content}
	require.ElementsMatch(t, []string{"v1", "v2"}, contents)
}

func TestListForFileScopedByPath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCheckpoint(ctx, "/project/a.go", "a", "", "manual")
	require.NoError(t, err)
	_, err = store.CreateCheckpoint(ctx, "/project/b.go", "b", "", "manual")
	require.NoError(t, err)

	history, err := store.ListForFile(ctx, "/project/a.go")
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "a", history[0].Content)
}

func TestPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCheckpoint(ctx, "/project/a.go", "fresh", "", "manual")
	require.NoError(t, err)

	// Nothing is older than a day.
	removed, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Zero(t, removed)

	// A zero retention removes everything created before now.
	time.Sleep(10 * time.Millisecond)
	removed, err = store.Prune(ctx, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	history, err := store.ListForFile(ctx, "/project/a.go")
	require.NoError(t, err)
	require.Empty(t, history)
}
