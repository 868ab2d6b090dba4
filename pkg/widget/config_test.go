package widget

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codz-dev/uploader/pkg/i18n"
)

func TestConfigFromAttrsDefaults(t *testing.T) {
	cfg := ConfigFromAttrs(map[string]string{"id": "avatar"}, nil)

	assert.Equal(t, "avatar", cfg.ID)
	assert.Equal(t, int64(DefaultMaxSizeKB), cfg.MaxSizeKB)
	assert.Equal(t, "GET", cfg.DeleteMethod)
	assert.False(t, cfg.Single)
	assert.False(t, cfg.Required)
	assert.Equal(t, i18n.English, cfg.Lang)
	assert.Empty(t, cfg.Existing)
}

func TestConfigFromAttrs(t *testing.T) {
	cfg := ConfigFromAttrs(map[string]string{
		AttrMaxSize:       "500kb",
		AttrAcceptedTypes: ".pdf, image/*",
		AttrSingleMode:    "true",
		AttrExistingFiles: `[{"id": 12, "url": "/u/a.png", "deleteUrl": "/d/12"}, {"id": "x9", "url": "/u/b.pdf", "deleteUrl": null}]`,
		AttrDeleteMethod:  "delete",
		AttrRequired:      "true",
		AttrName:          "attachments[]",
		AttrLang:          "ar",
	}, nil)

	assert.Equal(t, int64(500), cfg.MaxSizeKB)
	assert.Equal(t, ".pdf, image/*", cfg.Accept)
	assert.True(t, cfg.Single)
	assert.True(t, cfg.Required)
	assert.Equal(t, "DELETE", cfg.DeleteMethod)
	assert.Equal(t, i18n.Arabic, cfg.Lang)

	require.Len(t, cfg.Existing, 2)
	assert.Equal(t, FlexID("12"), cfg.Existing[0].ID)
	assert.Equal(t, "/d/12", cfg.Existing[0].DeleteURL)
	assert.Equal(t, FlexID("x9"), cfg.Existing[1].ID)
	assert.Empty(t, cfg.Existing[1].DeleteURL)
}

func TestConfigSkipsMalformedExisting(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := ConfigFromAttrs(map[string]string{AttrExistingFiles: `[{"id":1}`}, logger)
	assert.Empty(t, cfg.Existing)
	assert.Contains(t, buf.String(), "U040")

	buf.Reset()
	cfg = ConfigFromAttrs(map[string]string{
		AttrExistingFiles: `[{"id":1,"url":""},{"id":2,"url":"/ok.pdf"},{"id":{},"url":"/bad"}]`,
	}, logger)
	require.Len(t, cfg.Existing, 1)
	assert.Equal(t, FlexID("2"), cfg.Existing[0].ID)
	assert.Contains(t, buf.String(), "missing url")
}

func TestConfigInvalidMaxSizeFallsBack(t *testing.T) {
	for _, v := range []string{"", "abc", "0", "-5"} {
		cfg := ConfigFromAttrs(map[string]string{AttrMaxSize: v}, nil)
		assert.Equal(t, int64(DefaultMaxSizeKB), cfg.MaxSizeKB, v)
	}
}

func TestFieldLabel(t *testing.T) {
	tests := map[string]string{
		"":                "File",
		"avatar":          "Avatar",
		"profile_photo":   "Profile Photo",
		"gallery_items[]": "Gallery Items",
		"ID_card":         "Id Card",
	}
	for name, want := range tests {
		assert.Equal(t, want, Config{Name: name}.FieldLabel(), name)
	}
}

func TestFileFieldName(t *testing.T) {
	assert.Equal(t, "docs[]", Config{Name: "docs"}.FileFieldName())
	assert.Equal(t, "docs[]", Config{Name: "docs[]"}.FileFieldName())
	assert.Equal(t, "avatar", Config{Name: "avatar", Single: true}.FileFieldName())
}

func TestMaxSizeMB(t *testing.T) {
	assert.Equal(t, "5.0", Config{MaxSizeKB: 5120}.MaxSizeMB())
	assert.Equal(t, "0.5", Config{MaxSizeKB: 500}.MaxSizeMB())
}
