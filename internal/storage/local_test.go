package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return store
}

func TestLocalStore_UploadAndFetch(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	info, err := store.Upload(ctx, strings.NewReader("pdf bytes"), "report.pdf", "reports")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(info.Key, "reports/2026/03/01/"))
	assert.True(t, strings.HasSuffix(info.Key, ".pdf"))
	assert.Equal(t, "report.pdf", info.OriginalName)
	assert.Equal(t, int64(9), info.Size)

	data, err := store.Fetch(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestLocalStore_UploadUniqueKeysForSameName(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	first, err := store.Upload(ctx, strings.NewReader("a"), "photo.jpg", "photos")
	require.NoError(t, err)
	second, err := store.Upload(ctx, strings.NewReader("b"), "photo.jpg", "photos")
	require.NoError(t, err)

	assert.NotEqual(t, first.Key, second.Key)
}

func TestLocalStore_DeleteRemovesObject(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	info, err := store.Upload(ctx, strings.NewReader("x"), "note.txt", "general")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, info.Key))

	_, err = store.Fetch(ctx, info.Key)
	assert.Error(t, err)
}

func TestLocalStore_ListScopedToDirectory(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.Upload(ctx, strings.NewReader("a"), "one.pdf", "reports")
	require.NoError(t, err)
	_, err = store.Upload(ctx, strings.NewReader("b"), "two.pdf", "reports")
	require.NoError(t, err)
	_, err = store.Upload(ctx, strings.NewReader("c"), "pic.jpg", "photos")
	require.NoError(t, err)

	reports, err := store.List(ctx, "reports")
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	for _, info := range reports {
		assert.True(t, strings.HasPrefix(info.Key, "reports/"))
	}

	missing, err := store.List(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLocalStore_ResolveRejectsEscapingKeys(t *testing.T) {
	store := newTestLocalStore(t)
	ctx := context.Background()

	_, err := store.Fetch(ctx, "../outside")
	assert.Error(t, err)
}
