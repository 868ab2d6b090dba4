package upload

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)

	id, err := store.Save(ctx, "report.pdf", "application/pdf", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	f, err := store.Stat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", f.Filename)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, int64(5), f.Size)

	rc, err := store.Open(ctx, id)
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Stat(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Open(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Delete(ctx, id), "second delete is a no-op")
}

func TestDiskStoreTooLarge(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 4)
	require.NoError(t, err)

	_, err = store.Save(ctx, "a", "", 10, strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, ErrTooLarge)

	// size unknown up front: detected while copying
	_, err = store.Save(ctx, "a", "", 0, strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDiskStoreStatAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first, err := NewDiskStore(dir, 0)
	require.NoError(t, err)
	id, err := first.Save(ctx, "x.png", "image/png", 3, strings.NewReader("png"))
	require.NoError(t, err)

	second, err := NewDiskStore(dir, 0)
	require.NoError(t, err)
	f, err := second.Stat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "x.png", f.Filename)
}

func TestDiskStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Stat(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStoreCleanup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 0)
	require.NoError(t, err)

	oldID, _ := store.Save(ctx, "old", "", 1, strings.NewReader("o"))
	newID, _ := store.Save(ctx, "new", "", 1, strings.NewReader("n"))

	past := time.Now().Add(-2 * time.Hour)
	store.mu.Lock()
	store.files[oldID].CreatedAt = past
	store.mu.Unlock()
	require.NoError(t, os.Chtimes(filepath.Join(dir, oldID), past, past))
	require.NoError(t, os.Chtimes(filepath.Join(dir, oldID+".meta"), past, past))

	require.NoError(t, store.Cleanup(ctx, time.Hour))

	_, err = store.Stat(ctx, oldID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Stat(ctx, newID)
	assert.NoError(t, err)
}

func TestBlobReleaseOnce(t *testing.T) {
	ctx := context.Background()
	store, err := NewDiskStore(t.TempDir(), 0)
	require.NoError(t, err)
	id, _ := store.Save(ctx, "a", "", 1, strings.NewReader("a"))

	b := NewBlob(store, id)
	assert.Equal(t, id, b.ID())

	rc, err := b.Open()
	require.NoError(t, err)
	rc.Close()

	require.NoError(t, b.Release())
	require.NoError(t, b.Release())
	_, err = b.Open()
	assert.ErrorIs(t, err, ErrNotFound)
}
