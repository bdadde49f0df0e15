package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	apperrors "github.com/sitevisit/report-server-go/internal/errors"
	"github.com/sitevisit/report-server-go/internal/storage"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200

	defaultQueryResults = 3
)

// ProductMatch is one retrieval hit against the indexed product
// documentation.
type ProductMatch struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type productChunk struct {
	source  string
	content string
	terms   map[string]int
}

// ProductService maintains the uploaded product documentation (PDF and TXT
// datasheets) and answers keyword retrieval queries over it. The index is
// an in-memory term-frequency structure rebuilt from the data directory;
// uploads are also archived through the storage backend.
type ProductService struct {
	dataDir string
	archive storage.Store
	logger  zerolog.Logger

	mu     sync.RWMutex
	chunks []productChunk
}

func NewProductService(dataDir string, archive storage.Store, logger zerolog.Logger) (*ProductService, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create product data dir: %w", err)
	}

	s := &ProductService{
		dataDir: dataDir,
		archive: archive,
		logger:  logger.With().Str("component", "product_data").Logger(),
	}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Upload stores a datasheet under its original name, archives a copy, and
// reindexes the new content. Only PDF and TXT files are accepted.
func (s *ProductService) Upload(ctx context.Context, r io.Reader, fileName string) (*storage.ObjectInfo, error) {
	if !allowedProductFile(fileName) {
		return nil, apperrors.InvalidInput("file", "only PDF or TXT files are supported")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	info, err := s.archive.Upload(ctx, bytes.NewReader(data), fileName, "product-data")
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	localPath := filepath.Join(s.dataDir, filepath.Base(fileName))
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return nil, apperrors.Persistence(err)
	}

	if err := s.indexFile(localPath); err != nil {
		return nil, err
	}

	s.logger.Info().Str("file", fileName).Msg("product data uploaded and indexed")
	return info, nil
}

// List returns the names of all indexed datasheets.
func (s *ProductService) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowedProductFile(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Delete removes a datasheet and rebuilds the index without it.
func (s *ProductService) Delete(ctx context.Context, fileName string) error {
	localPath := filepath.Join(s.dataDir, filepath.Base(fileName))
	if _, err := os.Stat(localPath); os.IsNotExist(err) {
		return apperrors.NotFound("File")
	}
	if err := os.Remove(localPath); err != nil {
		return apperrors.Persistence(err)
	}

	if err := s.rebuildIndex(); err != nil {
		return err
	}

	s.logger.Info().Str("file", fileName).Msg("product data deleted and index rebuilt")
	return nil
}

// Query scores every indexed chunk against the query terms and returns the
// top k matches.
func (s *ProductService) Query(ctx context.Context, query string, k int) ([]ProductMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.MissingRequired("query")
	}
	if k <= 0 {
		k = defaultQueryResults
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]ProductMatch, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		score := scoreChunk(chunk, queryTerms)
		if score > 0 {
			matches = append(matches, ProductMatch{
				Source:  chunk.source,
				Content: chunk.content,
				Score:   score,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *ProductService) rebuildIndex() error {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return apperrors.Persistence(err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !allowedProductFile(entry.Name()) {
			continue
		}
		if err := s.indexFile(filepath.Join(s.dataDir, entry.Name())); err != nil {
			// A corrupt datasheet should not block the rest of the
			// index.
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable product data")
		}
	}
	return nil
}

func (s *ProductService) indexFile(path string) error {
	text, err := extractText(path)
	if err != nil {
		return apperrors.Persistence(err)
	}

	source := filepath.Base(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop any chunks from a previous version of the same file.
	kept := s.chunks[:0]
	for _, chunk := range s.chunks {
		if chunk.source != source {
			kept = append(kept, chunk)
		}
	}
	s.chunks = kept

	for _, content := range splitChunks(text) {
		terms := make(map[string]int)
		for _, term := range tokenize(content) {
			terms[term]++
		}
		s.chunks = append(s.chunks, productChunk{
			source:  source,
			content: content,
			terms:   terms,
		})
	}
	return nil
}

func extractText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extractPDFText(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// splitChunks cuts text into overlapping windows so a term straddling a
// boundary still lands whole in at least one chunk.
func splitChunks(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - chunkOverlap
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

var termRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return termRe.FindAllString(strings.ToLower(text), -1)
}

// scoreChunk is a length-normalized term-frequency score over the query
// terms.
func scoreChunk(chunk productChunk, queryTerms []string) float64 {
	total := 0
	for _, count := range chunk.terms {
		total += count
	}
	if total == 0 {
		return 0
	}

	var score float64
	for _, term := range queryTerms {
		if count, ok := chunk.terms[term]; ok {
			score += (1 + math.Log(float64(count))) / float64(total)
		}
	}
	return score
}

func allowedProductFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	default:
		return false
	}
}
