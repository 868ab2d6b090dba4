package upload

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are used to detect a content type.
const sniffLen = 3072

// Staged is the staging endpoint's JSON response.
type Staged struct {
	TempID string `json:"temp_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int64  `json:"size"`
}

// Handler returns the staging endpoint. It expects a multipart form with a
// "file" field and answers with a Staged document.
//
// The declared part type is kept because widgets match accept lists against
// it, as a browser would. When the client declares none the type is
// detected from the content.
func Handler(store Store, config *Config) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultConfig().MaxFileSize
	}
	logger := slog.Default().With("component", "upload")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Limit the body before parsing; multipart overhead gets 1MB of slack
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxSize {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}

		name := filepath.Base(header.Filename)
		contentType := declaredType(header.Header.Get("Content-Type"))

		var body io.Reader = file
		if contentType == "" {
			head := make([]byte, sniffLen)
			n, _ := io.ReadFull(file, head)
			head = head[:n]
			contentType = mimetype.Detect(head).String()
			if base, _, err := mime.ParseMediaType(contentType); err == nil {
				contentType = base
			}
			body = io.MultiReader(bytes.NewReader(head), file)
		}

		tempID, err := store.Save(r.Context(), name, contentType, header.Size, body)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			logger.Error("staging failed", "code", "U060", "name", name, "error", err)
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		logger.Debug("staged", "temp_id", tempID, "name", name, "type", contentType, "size", header.Size)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Staged{
			TempID: tempID,
			Name:   name,
			Type:   contentType,
			Size:   header.Size,
		})
	})
}

// declaredType returns the media type the client declared, or "" when it
// declared nothing useful.
func declaredType(v string) string {
	if v == "" {
		return ""
	}
	base, _, err := mime.ParseMediaType(v)
	if err != nil || base == "application/octet-stream" {
		return ""
	}
	return base
}
