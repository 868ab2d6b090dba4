// Package i18n is the uploader's string table.
//
// Two languages are supported: English (the default) and Arabic. Lookups
// fall back from the active language to English and finally to the key
// itself, so a missing translation never renders as an empty string.
package i18n

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Lang is the closed set of supported languages.
type Lang string

const (
	English Lang = "en"
	Arabic  Lang = "ar"
)

// Default is the language used when none or an unsupported one is given.
const Default = English

// Missing is returned for an empty key.
const Missing = "?"

// ParseLang normalises a language code. Regional variants collapse to their
// base language ("ar-EG" is Arabic); anything unsupported is English.
func ParseLang(code string) Lang {
	code = strings.TrimSpace(code)
	if code == "" {
		return Default
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Default
	}
	base, _ := tag.Base()
	switch Lang(base.String()) {
	case Arabic:
		return Arabic
	default:
		return Default
	}
}

// Dir returns the text direction for the language.
func (l Lang) Dir() string {
	if l == Arabic {
		return "rtl"
	}
	return "ltr"
}

// Translator looks up templated strings for one language.
type Translator struct {
	lang Lang
}

// New returns a Translator for lang. Unsupported languages use English.
func New(lang Lang) *Translator {
	if _, ok := tables[lang]; !ok {
		lang = Default
	}
	return &Translator{lang: lang}
}

// Lang returns the active language.
func (t *Translator) Lang() Lang {
	if t == nil {
		return Default
	}
	return t.lang
}

// T returns the string for key with positional placeholders ({0}, {1}, ...)
// replaced by params. Placeholders are replaced in one pass, so a param
// that looks like a placeholder is kept as is. T never returns "".
func (t *Translator) T(key string, params ...any) string {
	text, ok := tables[t.Lang()][key]
	if !ok {
		text, ok = tables[Default][key]
	}
	if !ok {
		text = key
	}
	if len(params) > 0 {
		pairs := make([]string, 0, 2*len(params))
		for i, p := range params {
			pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(p))
		}
		text = strings.NewReplacer(pairs...).Replace(text)
	}
	if text == "" {
		return Missing
	}
	return text
}

// Has reports whether key exists in the active or default table.
func (t *Translator) Has(key string) bool {
	if _, ok := tables[t.Lang()][key]; ok {
		return true
	}
	_, ok := tables[Default][key]
	return ok
}
