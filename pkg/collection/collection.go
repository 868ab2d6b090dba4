// Package collection holds the ordered list of files a widget tracks.
//
// A widget tracks two kinds of files: pending files the user just selected
// (backed by staged bytes) and remote files that already exist on the server.
// Order is user-visible; in multiple mode new pending files are placed in
// front of everything else, most recent batch first.
//
// Collection is not safe for concurrent use. It is owned by exactly one
// widget controller, which mutates it only from its event loop.
package collection

import (
	"io"

	"github.com/google/uuid"

	"github.com/codz-dev/uploader/pkg/classify"
)

// Kind discriminates the File union.
type Kind uint8

const (
	KindPending Kind = iota // selected locally, not yet stored server-side
	KindRemote              // already stored, known by id and URL
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindPending:
		return "Pending"
	case KindRemote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// Blob is the binary handle behind a pending file.
type Blob interface {
	// ID identifies the staged bytes (the staging temp id).
	ID() string

	// Open returns a reader over the staged bytes.
	Open() (io.ReadCloser, error)

	// Release frees the staged bytes. It must be safe to call more than once.
	Release() error
}

// File is one tracked entry.
type File struct {
	// Key is a stable identity assigned on creation. Unlike the position in
	// the collection it survives concurrent removals.
	Key string

	Kind Kind

	// Name and Type are the display name and MIME type. For pending files
	// they come from the selected file; for remote files they are derived
	// from the URL.
	Name string
	Type string

	// Size in bytes. Always zero for remote files.
	Size int64

	// Blob holds the staged bytes of a pending file.
	Blob Blob

	// ID, URL and DeleteURL describe a remote file.
	ID        string
	URL       string
	DeleteURL string
}

// NewPending creates a pending entry.
func NewPending(name, mimeType string, size int64, blob Blob) File {
	return File{
		Key:  uuid.NewString(),
		Kind: KindPending,
		Name: name,
		Type: mimeType,
		Size: size,
		Blob: blob,
	}
}

// NewRemote creates a remote entry. Name and type are derived from url.
func NewRemote(id, url, deleteURL string) File {
	return File{
		Key:       uuid.NewString(),
		Kind:      KindRemote,
		Name:      classify.NameFromURL(url),
		Type:      classify.MIMEFromURL(url),
		ID:        id,
		URL:       url,
		DeleteURL: deleteURL,
	}
}

// IsPending reports whether f is a pending entry.
func (f File) IsPending() bool { return f.Kind == KindPending }

// IsRemote reports whether f is a remote entry.
func (f File) IsRemote() bool { return f.Kind == KindRemote }

// Deletable reports whether removing f requires a deletion request.
func (f File) Deletable() bool { return f.Kind == KindRemote && f.DeleteURL != "" }

// Removable reports whether f gets a remove control at all.
func (f File) Removable() bool { return f.Kind == KindPending || f.DeleteURL != "" }

// IsImage reports whether f gets an inline image preview.
func (f File) IsImage() bool {
	if f.Kind == KindRemote {
		return f.URL != "" && classify.IsImageURL(f.URL)
	}
	return classify.IsImageType(f.Type)
}

// IsVideo reports whether f is a video.
func (f File) IsVideo() bool {
	if f.Kind == KindRemote {
		return f.URL != "" && classify.IsVideoURL(f.URL)
	}
	return classify.IsVideoType(f.Type)
}

// Label returns the extension badge for f.
func (f File) Label() classify.Label {
	if f.Kind == KindRemote {
		return classify.LabelForURL(f.URL)
	}
	return classify.LabelFor(f.Name, f.Type)
}

// Collection is the ordered list of tracked files.
type Collection struct {
	single bool
	files  []File
}

// New returns an empty collection. In single mode it holds at most one file.
func New(single bool) *Collection {
	return &Collection{single: single}
}

// Single reports whether the collection is in single mode.
func (c *Collection) Single() bool { return c.single }

// Seed appends the initial remote files in their configured order. In
// single mode only the first is kept.
func (c *Collection) Seed(remote ...File) {
	for _, f := range remote {
		if c.single && len(c.files) > 0 {
			return
		}
		c.files = append(c.files, f)
	}
}

// AddPending commits a batch of files that already passed validation.
// In single mode the collection is replaced by the first file of the batch;
// in multiple mode the batch is placed in front of the existing entries.
// It returns the entries that were displaced from the collection.
func (c *Collection) AddPending(files []File) (replaced []File) {
	if len(files) == 0 {
		return nil
	}
	if c.single {
		replaced = c.files
		c.files = []File{files[0]}
		return replaced
	}
	next := make([]File, 0, len(files)+len(c.files))
	next = append(next, files...)
	next = append(next, c.files...)
	c.files = next
	return nil
}

// RemoveAt removes the entry at index. Deletable remote entries are left in
// place: they leave the collection only once their deletion succeeds, via
// Remove. The removed entry is returned with ok set.
func (c *Collection) RemoveAt(index int) (File, bool) {
	if index < 0 || index >= len(c.files) {
		return File{}, false
	}
	f := c.files[index]
	if f.Deletable() {
		return File{}, false
	}
	c.files = append(c.files[:index:index], c.files[index+1:]...)
	return f, true
}

// Remove removes the entry with key regardless of kind.
func (c *Collection) Remove(key string) (File, bool) {
	i := c.IndexOf(key)
	if i < 0 {
		return File{}, false
	}
	f := c.files[i]
	c.files = append(c.files[:i:i], c.files[i+1:]...)
	return f, true
}

// IndexOf returns the current position of key, or -1.
func (c *Collection) IndexOf(key string) int {
	for i, f := range c.files {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the entry with key.
func (c *Collection) Get(key string) (File, bool) {
	i := c.IndexOf(key)
	if i < 0 {
		return File{}, false
	}
	return c.files[i], true
}

// At returns the entry at index.
func (c *Collection) At(index int) (File, bool) {
	if index < 0 || index >= len(c.files) {
		return File{}, false
	}
	return c.files[index], true
}

// Reset empties the collection and returns everything it held, so the caller
// can release pending bytes and request deletion of deletable remotes.
func (c *Collection) Reset() []File {
	old := c.files
	c.files = nil
	return old
}

// Count returns the number of tracked files.
func (c *Collection) Count() int { return len(c.files) }

// IsEmpty reports whether no files are tracked.
func (c *Collection) IsEmpty() bool { return len(c.files) == 0 }

// All returns a copy of the tracked files in order.
func (c *Collection) All() []File {
	return append([]File(nil), c.files...)
}

// PendingOnly returns the pending entries in order.
func (c *Collection) PendingOnly() []File {
	var out []File
	for _, f := range c.files {
		if f.Kind == KindPending {
			out = append(out, f)
		}
	}
	return out
}

// PendingCount returns the number of pending entries.
func (c *Collection) PendingCount() int {
	n := 0
	for _, f := range c.files {
		if f.Kind == KindPending {
			n++
		}
	}
	return n
}

// RemoteIdentifiers returns the ids of the remote entries in order.
func (c *Collection) RemoteIdentifiers() []string {
	var ids []string
	for _, f := range c.files {
		if f.Kind == KindRemote {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
