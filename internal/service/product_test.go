package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sitevisit/report-server-go/internal/errors"
	"github.com/sitevisit/report-server-go/internal/storage"
)

func newTestProductService(t *testing.T) *ProductService {
	t.Helper()

	archive, err := storage.NewLocalStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	svc, err := NewProductService(t.TempDir(), archive, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func TestProductService_UploadRejectsUnsupportedType(t *testing.T) {
	svc := newTestProductService(t)

	_, err := svc.Upload(context.Background(), strings.NewReader("x"), "virus.exe")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)
}

func TestProductService_UploadListQueryDelete(t *testing.T) {
	svc := newTestProductService(t)
	ctx := context.Background()

	sheet := "Air barrier membrane. Self-adhered membrane for wall assemblies. " +
		"Apply primer before installing the membrane in cold weather."
	info, err := svc.Upload(ctx, strings.NewReader(sheet), "membrane.txt")
	require.NoError(t, err)
	assert.Equal(t, "membrane.txt", info.OriginalName)

	_, err = svc.Upload(ctx, strings.NewReader("Sealant for concrete joints."), "sealant.txt")
	require.NoError(t, err)

	files, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"membrane.txt", "sealant.txt"}, files)

	matches, err := svc.Query(ctx, "membrane primer", 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "membrane.txt", matches[0].Source)
	assert.Contains(t, matches[0].Content, "membrane")

	require.NoError(t, svc.Delete(ctx, "membrane.txt"))

	files, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sealant.txt"}, files)

	matches, err = svc.Query(ctx, "membrane primer", 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestProductService_DeleteUnknownFile(t *testing.T) {
	svc := newTestProductService(t)

	err := svc.Delete(context.Background(), "missing.pdf")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestProductService_QueryRequiresInput(t *testing.T) {
	svc := newTestProductService(t)

	_, err := svc.Query(context.Background(), "   ", 3)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeMissingRequired, appErr.Code)
}

func TestProductService_IndexRebuiltFromExistingFiles(t *testing.T) {
	archive, err := storage.NewLocalStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dataDir, "flashing.txt"),
		[]byte("Through-wall flashing detail for masonry veneer."), 0o644))

	svc, err := NewProductService(dataDir, archive, zerolog.Nop())
	require.NoError(t, err)

	matches, err := svc.Query(context.Background(), "flashing masonry", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "flashing.txt", matches[0].Source)
}

func TestSplitChunks_OverlapCoversBoundaries(t *testing.T) {
	text := strings.Repeat("abcde ", 400) // 2400 chars
	chunks := splitChunks(text)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.Len(t, c, chunkSize)
	}

	// Consecutive chunks share the overlap window.
	first := chunks[0]
	second := chunks[1]
	assert.Equal(t, first[len(first)-chunkOverlap:], second[:chunkOverlap])
}
