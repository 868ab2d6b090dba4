// Package csrf locates the anti-forgery token a host page carries.
package csrf

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HeaderName is the request header deletion requests carry the token in.
const HeaderName = "X-CSRF-TOKEN"

// FromDocument returns the page's token: the content of
// meta[name=csrf-token] if present, else the value of the first
// input[name=_token]. It returns "" when neither exists.
func FromDocument(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	if v, ok := doc.Find(`meta[name="csrf-token"]`).First().Attr("content"); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	if v, ok := doc.Find(`input[name="_token"]`).First().Attr("value"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// NeedsToken reports whether method is a mutation verb that must carry the
// token.
func NeedsToken(method string) bool {
	switch strings.ToUpper(method) {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}
	return false
}
