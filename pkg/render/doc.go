// Package render writes vdom trees as HTML.
//
// Text and attribute values are escaped, void elements are written without
// a closing tag and boolean attributes are written bare. Every element that
// carries a vdom.Control gets a data-hid attribute; the hid to control map
// is available from Controls after rendering:
//
//	r := render.NewRenderer(render.RendererConfig{HIDPrefix: widgetID + "-"})
//	html, err := r.RenderToString(ctrl.Render())
//	registry := r.Controls()
//
// HIDPrefix keeps ids unique when several widgets share one page.
package render
