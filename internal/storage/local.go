package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalStore keeps objects on the local filesystem under a base directory,
// organized as <directory>/<yyyy>/<mm>/<dd>/<uuid>.<ext>.
type LocalStore struct {
	baseDir string
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLocalStore(baseDir string, logger zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	s := &LocalStore{
		baseDir: baseDir,
		logger:  logger.With().Str("component", "storage").Str("backend", "local").Logger(),
		now:     time.Now,
	}
	s.logger.Info().Str("dir", baseDir).Msg("local storage initialized")
	return s, nil
}

func (s *LocalStore) Upload(ctx context.Context, r io.Reader, fileName, directory string) (*ObjectInfo, error) {
	key := objectKey(fileName, directory, s.now())

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("create object dir: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("create object file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("write object: %w", err)
	}

	s.logger.Info().Str("key", key).Int64("size", size).Msg("file stored")

	return &ObjectInfo{
		Key:          key,
		Location:     fullPath,
		OriginalName: fileName,
		Size:         size,
		ModifiedAt:   s.now(),
	}, nil
}

func (s *LocalStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(fullPath)
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	return os.Remove(fullPath)
}

func (s *LocalStore) List(ctx context.Context, directory string) ([]ObjectInfo, error) {
	root := filepath.Join(s.baseDir, directory)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var infos []ObjectInfo
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		infos = append(infos, ObjectInfo{
			Key:          filepath.ToSlash(rel),
			Location:     p,
			OriginalName: d.Name(),
			Size:         fi.Size(),
			ModifiedAt:   fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", directory, err)
	}
	return infos, nil
}

// resolve maps a key back to a filesystem path, refusing keys that escape
// the base directory.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// objectKey builds the date-partitioned unique key for an upload.
func objectKey(fileName, directory string, now time.Time) string {
	unique := strings.ReplaceAll(uuid.NewString(), "-", "")
	if ext := path.Ext(fileName); ext != "" {
		unique += ext
	}
	return path.Join(directory, now.Format("2006/01/02"), unique)
}
