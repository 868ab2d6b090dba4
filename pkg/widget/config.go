package widget

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/i18n"
)

// Defaults applied by ConfigFromAttrs.
const (
	DefaultMaxSizeKB    = 5120
	DefaultDeleteMethod = "GET"
)

// Host markup attributes a widget is configured from.
const (
	AttrMaxSize       = "data-max-size"
	AttrAcceptedTypes = "data-accepted-types"
	AttrSingleMode    = "data-single-mode"
	AttrExistingFiles = "data-existing-files"
	AttrDeleteMethod  = "data-delete-method"
	AttrRequired      = "data-required"
	AttrName          = "data-name"
	AttrLang          = "data-lang"
)

// FlexID is a file identifier given either as a JSON string or number.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

// ExistingFile is a previously uploaded file the widget starts with.
type ExistingFile struct {
	ID        FlexID `json:"id"`
	URL       string `json:"url"`
	DeleteURL string `json:"deleteUrl,omitempty"`
}

// Config is a widget's configuration. It is read once from the host
// markup and not changed afterwards.
type Config struct {
	// ID is the widget root element's id.
	ID string

	// MaxSizeKB is the per-file size limit in kilobytes.
	MaxSizeKB int64

	// Accept is the accept specification, e.g. ".pdf, image/*".
	Accept string

	// Single limits the widget to one file.
	Single bool

	// Existing lists the remote files the widget starts with.
	Existing []ExistingFile

	// DeleteMethod is the HTTP method of deletion requests.
	DeleteMethod string

	// Required blocks form submission until a file is selected.
	Required bool

	// Name is the form field base name.
	Name string

	// Lang is the display language.
	Lang i18n.Lang
}

// ConfigFromAttrs reads a Config from the widget element's attributes.
// Malformed existing-file data is logged and skipped; it never fails the
// widget.
func ConfigFromAttrs(attrs map[string]string, logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := Config{
		ID:           strings.TrimSpace(attrs["id"]),
		MaxSizeKB:    DefaultMaxSizeKB,
		Accept:       attrs[AttrAcceptedTypes],
		Single:       attrs[AttrSingleMode] == "true",
		DeleteMethod: DefaultDeleteMethod,
		Required:     attrs[AttrRequired] == "true",
		Name:         attrs[AttrName],
		Lang:         i18n.ParseLang(attrs[AttrLang]),
	}

	if n := leadingInt(attrs[AttrMaxSize]); n > 0 {
		cfg.MaxSizeKB = n
	}
	if m := strings.TrimSpace(attrs[AttrDeleteMethod]); m != "" {
		cfg.DeleteMethod = strings.ToUpper(m)
	}
	if raw := strings.TrimSpace(attrs[AttrExistingFiles]); raw != "" {
		cfg.Existing = parseExisting(raw, cfg.ID, logger)
	}
	return cfg
}

// parseExisting decodes the existing-files JSON array, skipping entries
// that are malformed or lack a url.
func parseExisting(raw, widgetID string, logger *slog.Logger) []ExistingFile {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		logger.Warn("existing files ignored",
			"code", "U040", "widget", widgetID,
			"error", uerrors.New("U040").Wrap(err))
		return nil
	}

	files := make([]ExistingFile, 0, len(entries))
	for i, entry := range entries {
		var f ExistingFile
		if err := json.Unmarshal(entry, &f); err != nil {
			logger.Warn("existing file skipped",
				"code", "U040", "widget", widgetID, "index", i, "error", err)
			continue
		}
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" {
			logger.Warn("existing file skipped",
				"code", "U040", "widget", widgetID, "index", i, "error", "missing url")
			continue
		}
		files = append(files, f)
	}
	return files
}

// leadingInt parses the leading decimal digits of s, so "500kb" is 500.
func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FieldLabel returns the form field name in a human readable form:
// "profile_photo[]" becomes "Profile Photo". An empty name is "File".
func (c Config) FieldLabel() string {
	name := strings.TrimSuffix(c.Name, "[]")
	if name == "" {
		return "File"
	}
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// FileFieldName is the multipart field pending files are attached under.
// In multiple mode it carries the array marker.
func (c Config) FileFieldName() string {
	if c.Single || strings.HasSuffix(c.Name, "[]") {
		return c.Name
	}
	return c.Name + "[]"
}

// MaxSizeMB formats the size limit in megabytes with one decimal.
func (c Config) MaxSizeMB() string {
	return strconv.FormatFloat(float64(c.MaxSizeKB)/1024, 'f', 1, 64)
}
