package upload

import (
	"context"
	"io"
	"sync"
	"time"
)

// releaseTimeout bounds the store call a Release makes.
const releaseTimeout = 10 * time.Second

// Blob is a handle on a staged file. It implements collection.Blob.
type Blob struct {
	store Store
	id    string

	once sync.Once
	err  error
}

// NewBlob returns a handle on the staged file tempID.
func NewBlob(store Store, tempID string) *Blob {
	return &Blob{store: store, id: tempID}
}

// ID returns the temp id.
func (b *Blob) ID() string { return b.id }

// Open returns a reader over the staged bytes.
func (b *Blob) Open() (io.ReadCloser, error) {
	return b.store.Open(context.Background(), b.id)
}

// Release deletes the staged bytes. Only the first call reaches the store.
func (b *Blob) Release() error {
	b.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		b.err = b.store.Delete(ctx, b.id)
	})
	return b.err
}
