package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidscreen/internal/storage"
)

func TestDiskStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	body := "0123456789abcdef"
	err = store.Save(ctx, "2024/01/02/abc.mp4", strings.NewReader(body), int64(len(body)), "video/mp4")
	require.NoError(t, err)

	size, err := store.Stat(ctx, "2024/01/02/abc.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), size)

	r, err := store.Open(ctx, "2024/01/02/abc.mp4")
	require.NoError(t, err)
	defer r.Close()

	// Seek then read a slice, the way the stream handler serves ranges.
	_, err = r.Seek(4, io.SeekStart)
	require.NoError(t, err)
	part := make([]byte, 4)
	_, err = io.ReadFull(r, part)
	require.NoError(t, err)
	assert.Equal(t, "4567", string(part))

	require.NoError(t, store.Delete(ctx, "2024/01/02/abc.mp4"))

	_, err = store.Open(ctx, "2024/01/02/abc.mp4")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}

func TestDiskStore_DeleteAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Delete(ctx, "never/stored.mp4"))
	assert.NoError(t, store.Delete(ctx, "never/stored.mp4"))
}

func TestDiskStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(ctx, "../outside")
	assert.Error(t, err)

	err = store.Save(ctx, "/etc/passwd", strings.NewReader("x"), 1, "text/plain")
	assert.Error(t, err)
}

func TestDiskStore_StatMissing(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Stat(ctx, "missing.mp4")
	assert.ErrorIs(t, err, storage.ErrNotExist)
}
