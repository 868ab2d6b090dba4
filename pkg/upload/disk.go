package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DiskStore stages uploads on the local filesystem. Each file is stored
// under its temp id next to a small JSON metadata file.
type DiskStore struct {
	dir     string
	maxSize int64

	mu    sync.RWMutex
	files map[string]*File
}

type diskMeta struct {
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewDiskStore creates a new DiskStore.
//
// Parameters:
//   - dir: Directory to store temp files
//   - maxSize: Maximum file size in bytes (0 = no limit)
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     dir,
		maxSize: maxSize,
		files:   make(map[string]*File),
	}, nil
}

// Dir returns the staging directory.
func (s *DiskStore) Dir() string { return s.dir }

// Save stores the uploaded bytes and returns a temp ID.
func (s *DiskStore) Save(_ context.Context, filename, contentType string, size int64, r io.Reader) (string, error) {
	if s.maxSize > 0 && size > s.maxSize {
		return "", ErrTooLarge
	}

	tempID := newTempID()
	path := s.dataPath(tempID)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1) // +1 to detect overflow
	}
	written, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return "", ErrTooLarge
	}

	file := &File{
		ID:          tempID,
		Filename:    filename,
		ContentType: contentType,
		Size:        written,
		CreatedAt:   time.Now(),
	}
	if err := s.saveMeta(file); err != nil {
		os.Remove(path)
		return "", err
	}

	s.mu.Lock()
	s.files[tempID] = file
	s.mu.Unlock()

	return tempID, nil
}

// Stat returns the metadata of a staged file.
func (s *DiskStore) Stat(_ context.Context, tempID string) (*File, error) {
	if !validTempID(tempID) {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	file, ok := s.files[tempID]
	s.mu.RUnlock()
	if ok {
		cp := *file
		return &cp, nil
	}

	// staged by an earlier process
	meta, err := s.loadMeta(tempID)
	if err != nil {
		return nil, ErrNotFound
	}
	if _, err := os.Stat(s.dataPath(tempID)); err != nil {
		return nil, ErrNotFound
	}
	return &File{
		ID:          tempID,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		CreatedAt:   meta.CreatedAt,
	}, nil
}

// Open returns a reader over a staged file.
func (s *DiskStore) Open(_ context.Context, tempID string) (io.ReadCloser, error) {
	if !validTempID(tempID) {
		return nil, ErrNotFound
	}
	f, err := os.Open(s.dataPath(tempID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete removes a staged file.
func (s *DiskStore) Delete(_ context.Context, tempID string) error {
	if !validTempID(tempID) {
		return nil
	}
	s.mu.Lock()
	delete(s.files, tempID)
	s.mu.Unlock()

	err := os.Remove(s.dataPath(tempID))
	os.Remove(s.metaPath(tempID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Cleanup removes staged files older than maxAge, including orphans left
// by an earlier process.
func (s *DiskStore) Cleanup(_ context.Context, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	for tempID, file := range s.files {
		if file.CreatedAt.Before(cutoff) {
			delete(s.files, tempID)
			os.Remove(s.dataPath(tempID))
			os.Remove(s.metaPath(tempID))
		}
	}
	s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
	return nil
}

func (s *DiskStore) dataPath(tempID string) string {
	return filepath.Join(s.dir, tempID)
}

func (s *DiskStore) metaPath(tempID string) string {
	return filepath.Join(s.dir, tempID+".meta")
}

func (s *DiskStore) saveMeta(f *File) error {
	data, err := json.Marshal(diskMeta{
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		CreatedAt:   f.CreatedAt,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(s.metaPath(f.ID), data, 0o644)
}

func (s *DiskStore) loadMeta(tempID string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(tempID))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// newTempID returns a random temp id.
func newTempID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// validTempID rejects ids that could escape the staging directory.
func validTempID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return false
		}
	}
	return true
}
