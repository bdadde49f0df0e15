package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object. Key is backend-relative and is
// the handle for Fetch and Delete; Location is the backend-specific place
// the object landed (filesystem path or object URL).
type ObjectInfo struct {
	Key          string    `json:"key"`
	Location     string    `json:"location"`
	OriginalName string    `json:"original_filename"`
	Size         int64     `json:"size,omitempty"`
	ModifiedAt   time.Time `json:"modified_at,omitempty"`
}

// Store is the file archival capability. Uploads place objects under a
// logical directory with a generated unique name and a date prefix, so
// concurrent uploads of the same filename never collide.
type Store interface {
	Upload(ctx context.Context, r io.Reader, fileName, directory string) (*ObjectInfo, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, directory string) ([]ObjectInfo, error)
}
