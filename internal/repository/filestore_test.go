package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitevisit/report-server-go/internal/model"
)

func TestNewFileStore_InitializesEmptyDocuments(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	for _, name := range []string{codesFileName, logsFileName} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, "{}\n", string(data))
	}

	err = store.View(context.Background(), func(l *model.Ledger) error {
		assert.Empty(t, l.Codes)
		assert.Empty(t, l.Logs)
		return nil
	})
	require.NoError(t, err)
}

func TestFileStore_UpdatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	now := model.NewTimestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	err = store.Update(ctx, func(l *model.Ledger) error {
		l.Codes["ABC234"] = model.AccessCode{
			AssignedTo:    "Kim Foreman",
			Email:         "kim@example.com",
			CreatedAt:     now,
			ExpiresAt:     model.NewTimestamp(now.Time.AddDate(0, 0, 30)),
			IsValid:       true,
			UsesRemaining: 100,
			AccessLevel:   model.AccessLevelStandard,
		}
		l.Logs["log-1"] = model.AccessLogEntry{
			AccessCode: "ABC234",
			User:       "Kim Foreman",
			Action:     "login",
			Timestamp:  now,
		}
		return nil
	})
	require.NoError(t, err)

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	err = reopened.View(ctx, func(l *model.Ledger) error {
		require.Contains(t, l.Codes, "ABC234")
		code := l.Codes["ABC234"]
		assert.Equal(t, "Kim Foreman", code.AssignedTo)
		assert.Equal(t, 100, code.UsesRemaining)
		assert.True(t, code.IsValid)
		assert.Equal(t, model.AccessLevelStandard, code.AccessLevel)

		require.Contains(t, l.Logs, "log-1")
		assert.Equal(t, "login", l.Logs["log-1"].Action)
		return nil
	})
	require.NoError(t, err)
}

func TestFileStore_UpdateErrorDiscardsChanges(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	wantErr := fmt.Errorf("refused")
	err = store.Update(ctx, func(l *model.Ledger) error {
		l.Codes["XYZ789"] = model.AccessCode{IsValid: true}
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	err = store.View(ctx, func(l *model.Ledger) error {
		assert.NotContains(t, l.Codes, "XYZ789")
		return nil
	})
	require.NoError(t, err)
}

func TestFileStore_ViewMutationsDiscarded(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	err = store.View(ctx, func(l *model.Ledger) error {
		l.Codes["LEAKED"] = model.AccessCode{}
		return nil
	})
	require.NoError(t, err)

	err = store.View(ctx, func(l *model.Ledger) error {
		assert.NotContains(t, l.Codes, "LEAKED")
		return nil
	})
	require.NoError(t, err)
}

func TestFileStore_ConcurrentUpdatesAllApplied(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Update(ctx, func(l *model.Ledger) error {
				l.Codes[fmt.Sprintf("CODE%02d", i)] = model.AccessCode{IsValid: true}
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	err = store.View(ctx, func(l *model.Ledger) error {
		assert.Len(t, l.Codes, writers)
		return nil
	})
	require.NoError(t, err)
}
