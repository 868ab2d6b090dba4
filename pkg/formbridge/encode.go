package formbridge

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"sort"
	"strings"

	"github.com/codz-dev/uploader/pkg/classify"
	"github.com/codz-dev/uploader/pkg/collection"
	"github.com/codz-dev/uploader/pkg/widget"
)

// Source is a widget whose files are submitted with its form.
// *widget.Controller implements it.
type Source interface {
	Config() widget.Config
	Pending() []collection.File
	HiddenValue() (string, bool)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Encode writes fields and the files of every source to w as
// multipart/form-data and returns the body's content type.
//
// The widgets' own file input names are dropped from fields. Pending files
// are attached under the widget's file field name. Retained remote files
// are sent as one field under the widget's name: the id in single mode,
// a JSON array of ids otherwise.
func Encode(w io.Writer, fields url.Values, sources ...Source) (string, error) {
	mw := multipart.NewWriter(w)

	skip := make(map[string]bool, len(sources))
	for _, src := range sources {
		if name := src.Config().FileFieldName(); name != "" {
			skip[name] = true
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return "", err
			}
		}
	}

	for _, src := range sources {
		if err := encodeSource(mw, src); err != nil {
			return "", err
		}
	}

	if err := mw.Close(); err != nil {
		return "", err
	}
	return mw.FormDataContentType(), nil
}

func encodeSource(mw *multipart.Writer, src Source) error {
	cfg := src.Config()
	if cfg.Name == "" {
		return nil
	}

	pending := src.Pending()
	if cfg.Single && len(pending) > 1 {
		pending = pending[:1]
	}
	for _, f := range pending {
		if err := attach(mw, cfg.FileFieldName(), f); err != nil {
			return fmt.Errorf("widget %s: attach %s: %w", cfg.ID, f.Name, err)
		}
	}

	if v, ok := src.HiddenValue(); ok {
		return mw.WriteField(cfg.Name, v)
	}
	return nil
}

func attach(mw *multipart.Writer, field string, f collection.File) error {
	if f.Blob == nil {
		return nil
	}
	r, err := f.Blob.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	contentType := f.Type
	if contentType == "" {
		contentType = classify.DefaultMIMEType
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}
