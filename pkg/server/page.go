package server

import (
	"bytes"
	_ "embed"
	"io"
	"net/http"
	"os"
)

//go:embed demo.html
var demoPage []byte

// PageSource produces the host page for a request.
type PageSource interface {
	Open(r *http.Request) (io.ReadCloser, error)
}

// PageFunc adapts a function to PageSource.
type PageFunc func(r *http.Request) (io.ReadCloser, error)

// Open calls f.
func (f PageFunc) Open(r *http.Request) (io.ReadCloser, error) { return f(r) }

// FilePage reads the host page from path on every request, so edits show
// without a restart.
func FilePage(path string) PageSource {
	return PageFunc(func(*http.Request) (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// StaticPage serves the same markup for every request.
func StaticPage(html []byte) PageSource {
	return PageFunc(func(*http.Request) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(html)), nil
	})
}

// DemoPage is the built-in host page: a post form with a required single
// image widget and a multi-file attachments widget.
func DemoPage() PageSource {
	return StaticPage(demoPage)
}
