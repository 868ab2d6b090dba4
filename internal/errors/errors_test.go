package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"type rejection", "U010", "Unsupported file type", CategoryValidation},
		{"size rejection", "U011", "File too large", CategoryValidation},
		{"deletion", "U020", "Deletion request failed", CategoryDeletion},
		{"required", "U030", "Required file missing", CategoryRequired},
		{"config", "U040", "Malformed existing files", CategoryConfig},
		{"unknown", "U999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, tt.wantCat, err.Category)
			assert.Equal(t, tt.code, err.Code)
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("U011").WithDetail("photo.png is 7.20MB")
	assert.Equal(t, "U011: File too large: photo.png is 7.20MB", err.Error())

	plain := Newf(CategoryTransport, "frame %d invalid", 3)
	assert.Equal(t, "frame 3 invalid", plain.Error())
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := New("U020").Wrap(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, HasCode(fmt.Errorf("outer: %w", err), "U020"))
	assert.False(t, HasCode(err, "U021"))
	assert.Equal(t, CategoryDeletion, CategoryOf(fmt.Errorf("outer: %w", err)))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("batch: %w", New("U010").WithDetail("x.exe"))
	assert.True(t, stderrors.Is(err, New("U010")))
	assert.False(t, stderrors.Is(err, New("U011")))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil, "U060"))

	existing := New("U061")
	assert.Same(t, existing, FromError(fmt.Errorf("wrapped: %w", existing), "U060"))

	wrapped := FromError(fmt.Errorf("disk full"), "U060")
	require.NotNil(t, wrapped)
	assert.Equal(t, "U060", wrapped.Code)
	assert.Equal(t, "disk full", wrapped.Wrapped.Error())
}

func TestRegistryCodesAreCategorised(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		require.True(t, ok)
		assert.NotEmpty(t, tmpl.Category, code)
		assert.True(t, strings.HasPrefix(code, "U"), code)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("U041").Wrap(fmt.Errorf("unexpected EOF")).WithSuggestion("Check uploader.json").Format()
	assert.Contains(t, out, "ERROR U041: Invalid configuration file")
	assert.Contains(t, out, "Cause: unexpected EOF")
	assert.Contains(t, out, "Hint: Check uploader.json")
}
