package design

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteInsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &Document{Name: "chair", Payload: map[string]any{"legs": float64(4)}}
	id, err := store.Insert(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.False(t, doc.UploadedAt.IsZero())

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "chair", got.Name)
	assert.Equal(t, map[string]any{"legs": float64(4)}, got.Payload)
	assert.WithinDuration(t, doc.UploadedAt, got.UploadedAt, time.Millisecond)
}

func TestSQLiteGetUnknown(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteVersioningNeverOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Insert(ctx, &Document{
			Name:    "chair",
			Payload: map[string]any{"rev": float64(i)},
		})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct uploaded_at
	}

	docs, err := store.FindByName(ctx, "chair")
	require.NoError(t, err)
	require.Len(t, docs, 3)

	newest, err := VersionAt(docs, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(2), newest.Payload["rev"])
}

func TestSQLiteSearchByNameCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Garden Chair", "garden bench", "table"} {
		_, err := store.Insert(ctx, &Document{Name: name, Payload: map[string]any{}})
		require.NoError(t, err)
	}

	docs, err := store.SearchByName(ctx, "GARDEN")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.SearchByName(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSQLiteUpdateAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, &Document{Name: "chair", Payload: map[string]any{"legs": float64(4)}})
	require.NoError(t, err)

	ok, err := store.Update(ctx, id, "stool", map[string]any{"legs": float64(3)})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "stool", got.Name)
	assert.Equal(t, float64(3), got.Payload["legs"])

	ok, err = store.Update(ctx, "missing", "x", nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	ok, err = store.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
