package vdom

import "strings"

// attr creates an attribute with the given key and value.
func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Global attributes

func ID(id string) Attr { return attr("id", id) }

// Class joins non-empty class names. Repeated Class arguments accumulate.
func Class(classes ...string) Attr {
	parts := make([]string, 0, len(classes))
	for _, c := range classes {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return attr("class", strings.Join(parts, " "))
}

// ClassIf adds name when cond holds.
func ClassIf(cond bool, name string) Attr {
	if !cond {
		return Attr{}
	}
	return attr("class", name)
}

func StyleAttr(style string) Attr { return attr("style", style) }

// Data creates a data-* attribute.
func Data(key, value string) Attr { return attr("data-"+key, value) }

// AttrIf returns a when cond holds, an empty attribute otherwise.
func AttrIf(cond bool, a Attr) Attr {
	if !cond {
		return Attr{}
	}
	return a
}

// Accessibility attributes

func Role(role string) Attr       { return attr("role", role) }
func AriaLabel(label string) Attr { return attr("aria-label", label) }
func AriaLive(mode string) Attr   { return attr("aria-live", mode) }
func AriaBusy(busy bool) Attr     { return attr("aria-busy", busy) }
func TitleAttr(title string) Attr { return attr("title", title) }
func Dir(dir string) Attr         { return attr("dir", dir) }

// Form attributes

func Name(name string) Attr   { return attr("name", name) }
func Type(t string) Attr      { return attr("type", t) }
func Disabled() Attr          { return attr("disabled", true) }
func Multiple() Attr          { return attr("multiple", true) }
func Accept(types string) Attr {
	return attr("accept", types)
}

// Media attributes

func Src(url string) Attr  { return attr("src", url) }
func Alt(text string) Attr { return attr("alt", text) }
