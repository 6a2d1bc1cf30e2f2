package api

import (
	"context"
	"io"
	"time"

	"github.com/ST10266083/ABC-Store-Functions/domain"
)

// QueueStore abstracts queue access for handlers.
type QueueStore interface {
	EnsureQueue(ctx context.Context, name string) error
	// Enqueue sends a payload; a positive ttl bounds message lifetime.
	Enqueue(ctx context.Context, name, payload string, ttl time.Duration) error
	// Peek is read-only: it never removes or locks messages.
	Peek(ctx context.Context, name string, count int) ([]domain.QueuedMessage, error)
}

// TableStore abstracts the generic table upsert used by handlers.
type TableStore interface {
	UpsertEntity(ctx context.Context, table, partitionKey, rowKey string, props map[string]any) error
}

// BlobStore abstracts blob access for handlers.
type BlobStore interface {
	ListBlobs(ctx context.Context, container string) ([]string, error)
	UploadBlob(ctx context.Context, container, name string, body io.Reader, contentType string) error
	DownloadBlob(ctx context.Context, container, name string) (io.ReadCloser, string, error)
	DeleteBlob(ctx context.Context, container, name string) error
}

// FileStore abstracts share file access for handlers.
type FileStore interface {
	ListFiles(ctx context.Context, share string) ([]string, error)
	UploadFile(ctx context.Context, share, path string, data []byte) error
	DownloadFile(ctx context.Context, share, path string) (io.ReadCloser, error)
	DeleteFile(ctx context.Context, share, path string) error
}

// NotFoundError is implemented by store errors that should surface as 404.
type NotFoundError interface {
	error
	NotFound()
}
