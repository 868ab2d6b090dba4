// Package accept decides whether a file satisfies an accept specification.
//
// An accept specification is the value of an <input type="file"> accept
// attribute: a comma-separated list of filename extensions (".png") and MIME
// patterns ("application/pdf", "image/*").
//
//	m := accept.New(".png, .jpg, image/*")
//	m.Match("photo.PNG", "")        // true
//	m.Match("clip.webp", "image/webp") // true
//	m.Match("notes.txt", "text/plain") // false
package accept

import (
	"strings"
)

// Named is anything that exposes a filename and a declared MIME type.
type Named interface {
	Name() string
	Type() string
}

// Matcher matches files against a parsed accept specification.
// The zero value and a nil *Matcher match every file.
type Matcher struct {
	raw        string
	tokens     []string
	extensions []string
	mimeTypes  []string
}

// New parses spec. An empty spec matches every file.
func New(spec string) *Matcher {
	m := &Matcher{raw: spec}
	for _, item := range strings.Split(spec, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		m.tokens = append(m.tokens, item)
		if strings.HasPrefix(item, ".") {
			m.extensions = append(m.extensions, strings.ToLower(item))
		} else {
			m.mimeTypes = append(m.mimeTypes, strings.ToLower(item))
		}
	}
	return m
}

// Empty reports whether the specification has no usable tokens.
func (m *Matcher) Empty() bool {
	return m == nil || (len(m.extensions) == 0 && len(m.mimeTypes) == 0)
}

// Extensions returns the lower-cased extension tokens.
func (m *Matcher) Extensions() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.extensions...)
}

// MIMETypes returns the lower-cased MIME pattern tokens.
func (m *Matcher) MIMETypes() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.mimeTypes...)
}

// Spec returns the accept string the matcher was built from.
func (m *Matcher) Spec() string {
	if m == nil {
		return ""
	}
	return m.raw
}

// Format renders the accepted types for display, or fallback when the
// specification is empty.
func (m *Matcher) Format(fallback string) string {
	if m == nil || strings.TrimSpace(m.raw) == "" {
		return fallback
	}
	parts := strings.Split(m.raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Match reports whether a file with the given name and declared MIME type
// is accepted. It never panics; any internal failure is a non-match.
func (m *Matcher) Match(name, mimeType string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if m.Empty() {
		return true
	}

	fileName := strings.ToLower(name)
	fileType := strings.ToLower(mimeType)

	for _, ext := range m.extensions {
		if strings.HasSuffix(fileName, ext) {
			return true
		}
	}

	for _, pattern := range m.mimeTypes {
		if strings.HasSuffix(pattern, "/*") {
			if strings.HasPrefix(fileType, pattern[:len(pattern)-1]) {
				return true
			}
		} else if fileType == pattern {
			return true
		}
	}

	return false
}

// MatchFile is Match for anything exposing Name and Type. A nil file is a
// non-match.
func (m *Matcher) MatchFile(f Named) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if f == nil {
		return false
	}
	return m.Match(f.Name(), f.Type())
}
