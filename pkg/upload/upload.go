package upload

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a temp file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// Store is the interface for staging backends.
type Store interface {
	// Save stores the uploaded bytes and returns a temp ID.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (tempID string, err error)

	// Stat returns the metadata of a staged file.
	Stat(ctx context.Context, tempID string) (*File, error)

	// Open returns a reader over a staged file. The caller closes it.
	Open(ctx context.Context, tempID string) (io.ReadCloser, error)

	// Delete removes a staged file. Deleting an unknown id is not an error.
	Delete(ctx context.Context, tempID string) error

	// Cleanup removes staged files older than maxAge.
	Cleanup(ctx context.Context, maxAge time.Duration) error
}

// File describes a staged file.
type File struct {
	// ID is the temp id.
	ID string

	// Filename is the original filename from the client.
	Filename string

	// ContentType is the declared or sniffed MIME type.
	ContentType string

	// Size is the file size in bytes.
	Size int64

	// CreatedAt is when the file was staged.
	CreatedAt time.Time
}

// Config holds configuration for the staging handler.
type Config struct {
	// MaxFileSize is the largest body the handler accepts, in bytes.
	// Widgets enforce their own, usually smaller, limits.
	// Default: 100MB.
	MaxFileSize int64

	// TempExpiry is how long staged files live before cleanup.
	// Default: 1 hour.
	TempExpiry time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: 100 << 20,
		TempExpiry:  time.Hour,
	}
}

// RunCleanup calls store.Cleanup every interval until ctx is done.
func RunCleanup(ctx context.Context, store Store, interval, maxAge time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, maxAge); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
