package jobs

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitevisit/report-server-go/internal/storage"
)

func TestRetentionJob_PrunesOnlyExpiredFiles(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	old, err := store.Upload(ctx, strings.NewReader("old"), "old.pdf", "reports")
	require.NoError(t, err)
	fresh, err := store.Upload(ctx, strings.NewReader("new"), "new.pdf", "reports")
	require.NoError(t, err)

	// Age the first file past the retention window.
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old.Location, past, past))

	job := NewRetentionJob(store, 24*time.Hour, time.Hour)
	job.prune()

	_, err = store.Fetch(ctx, old.Key)
	assert.Error(t, err)

	data, err := store.Fetch(ctx, fresh.Key)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestRetentionJob_StartStop(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	job := NewRetentionJob(store, 24*time.Hour, time.Hour)
	job.Start()
	job.Stop()
}
