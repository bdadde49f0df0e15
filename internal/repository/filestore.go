package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sitevisit/report-server-go/internal/model"
)

const (
	codesFileName = "access_codes.json"
	logsFileName  = "access_logs.json"
)

// FileStore persists the ledger as two JSON documents on local disk. A
// process-wide mutex serializes every load-mutate-save cycle, and writes
// go through a temp file plus rename so a crash never leaves a partially
// written document behind.
type FileStore struct {
	mu        sync.Mutex
	codesPath string
	logsPath  string
}

// NewFileStore creates the data directory if needed and initializes empty
// documents on first use.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	s := &FileStore{
		codesPath: filepath.Join(dir, codesFileName),
		logsPath:  filepath.Join(dir, logsFileName),
	}

	for _, path := range []string{s.codesPath, s.logsPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeFileAtomic(path, []byte("{}\n")); err != nil {
				return nil, fmt.Errorf("initialize %s: %w", filepath.Base(path), err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
		}
	}

	return s, nil
}

func (s *FileStore) View(ctx context.Context, fn func(l *model.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load()
	if err != nil {
		return err
	}
	return fn(ledger)
}

func (s *FileStore) Update(ctx context.Context, fn func(l *model.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(ledger); err != nil {
		return err
	}
	return s.save(ledger)
}

func (s *FileStore) load() (*model.Ledger, error) {
	ledger := model.NewLedger()

	if err := readJSONFile(s.codesPath, &ledger.Codes); err != nil {
		return nil, fmt.Errorf("load access codes: %w", err)
	}
	if err := readJSONFile(s.logsPath, &ledger.Logs); err != nil {
		return nil, fmt.Errorf("load access logs: %w", err)
	}

	return ledger, nil
}

func (s *FileStore) save(l *model.Ledger) error {
	codes, err := json.MarshalIndent(l.Codes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode access codes: %w", err)
	}
	logs, err := json.MarshalIndent(l.Logs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode access logs: %w", err)
	}

	if err := writeFileAtomic(s.codesPath, codes); err != nil {
		return fmt.Errorf("save access codes: %w", err)
	}
	if err := writeFileAtomic(s.logsPath, logs); err != nil {
		return fmt.Errorf("save access logs: %w", err)
	}
	return nil
}

func readJSONFile(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
