// Package mount turns a host page into a live uploader page.
//
// Mount parses the page, builds a widget controller for every
// .file-uploader element and registers it with the page's required-field
// Gate under its enclosing form. It then renders each widget in place and
// injects the client script. The resulting Page is driven by one live
// session.
package mount

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/codz-dev/uploader/pkg/csrf"
	"github.com/codz-dev/uploader/pkg/formbridge"
	"github.com/codz-dev/uploader/pkg/render"
	"github.com/codz-dev/uploader/pkg/vdom"
	"github.com/codz-dev/uploader/pkg/widget"
)

// DefaultScriptURL is where the client script is served.
const DefaultScriptURL = "/_uploader/client.js"

// Options configures Mount.
type Options struct {
	// Widget is the template for every controller's options. OnChange is
	// overridden; an empty CSRFToken is filled from the page.
	Widget widget.Options

	// ScriptURL is the client script location.
	ScriptURL string

	// PageID identifies the page to the live session. Generated if empty.
	PageID string
}

type target struct {
	widget  string
	control vdom.Control
}

// Page is a mounted host page. Apart from Mount and HTML, its methods must
// be called from the loop the widgets run on.
type Page struct {
	id     string
	doc    *goquery.Document
	gate   *formbridge.Gate
	logger *slog.Logger
	csrf   string

	widgets map[string]*widget.Controller
	order   []string
	forms   map[string]formbridge.Form
	hids    map[string][]string
	targets map[string]target

	// OnChange, if set, runs when a widget needs re-rendering.
	OnChange func(widgetID string)
}

// Mount parses the host page read from r.
func Mount(r io.Reader, opts Options) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	if opts.Widget.Logger == nil {
		opts.Widget.Logger = slog.Default()
	}
	if opts.ScriptURL == "" {
		opts.ScriptURL = DefaultScriptURL
	}
	if opts.PageID == "" {
		opts.PageID = uuid.NewString()
	}

	p := &Page{
		id:      opts.PageID,
		doc:     doc,
		gate:    formbridge.NewGate(),
		logger:  opts.Widget.Logger.With("component", "mount", "page", opts.PageID),
		csrf:    csrf.FromDocument(doc),
		widgets: make(map[string]*widget.Controller),
		forms:   make(map[string]formbridge.Form),
		hids:    make(map[string][]string),
		targets: make(map[string]target),
	}
	if opts.Widget.CSRFToken == "" {
		opts.Widget.CSRFToken = p.csrf
	}

	doc.Find(".file-uploader").Each(func(_ int, s *goquery.Selection) {
		p.mountWidget(s, opts.Widget)
	})

	if err := p.renderAll(); err != nil {
		return nil, err
	}
	p.injectScript(opts.ScriptURL)
	p.logger.Info("page mounted", "widgets", len(p.order), "forms", len(p.formIDs()))
	return p, nil
}

func (p *Page) mountWidget(s *goquery.Selection, base widget.Options) {
	attrs := make(map[string]string)
	for _, a := range s.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}

	id := strings.TrimSpace(attrs["id"])
	if id == "" || p.widgets[id] != nil {
		id = "uploader-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		attrs["id"] = id
		s.SetAttr("id", id)
	}

	cfg := widget.ConfigFromAttrs(attrs, p.logger)
	if limit := base.StagingLimit; limit > 0 && cfg.MaxSizeKB*1024 > limit {
		p.logger.Warn("widget size limit exceeds staging cap",
			"widget", id, "max_size_kb", cfg.MaxSizeKB, "staging_limit", limit)
	}
	opts := base
	opts.OnChange = func() {
		if p.OnChange != nil {
			p.OnChange(id)
		}
	}
	ctrl := widget.New(cfg, opts)
	p.widgets[id] = ctrl
	p.order = append(p.order, id)

	form, ok := formbridge.FormOf(s)
	if !ok {
		p.logger.Debug("widget outside a form", "widget", id)
		return
	}
	if form.ID == "" {
		form.ID = "uploader-form-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		form.Selection.SetAttr("id", form.ID)
	}
	formbridge.EnsureMultipart(&form)
	p.forms[id] = form
	p.gate.Register(form.ID, ctrl)
}

func (p *Page) formIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, f := range p.forms {
		ids[f.ID] = true
	}
	return ids
}

func (p *Page) injectScript(src string) {
	tag := fmt.Sprintf(`<script src="%s" data-uploader-page="%s" defer></script>`,
		htmlAttr(src), htmlAttr(p.id))
	if body := p.doc.Find("body"); body.Length() > 0 {
		body.AppendHtml(tag)
		return
	}
	p.doc.Selection.AppendHtml(tag)
}

func htmlAttr(s string) string {
	return strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;").Replace(s)
}

// ID returns the page id.
func (p *Page) ID() string { return p.id }

// CSRFToken returns the anti-forgery token found in the page.
func (p *Page) CSRFToken() string { return p.csrf }

// Gate returns the page's required-field gate.
func (p *Page) Gate() *formbridge.Gate { return p.gate }

// Widget returns the controller with id.
func (p *Page) Widget(id string) (*widget.Controller, bool) {
	c, ok := p.widgets[id]
	return c, ok
}

// Widgets returns every controller in document order.
func (p *Page) Widgets() []*widget.Controller {
	out := make([]*widget.Controller, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.widgets[id])
	}
	return out
}

// Form returns the form enclosing the widget with id.
func (p *Page) Form(widgetID string) (formbridge.Form, bool) {
	f, ok := p.forms[widgetID]
	return f, ok
}

// FormByID returns a form by its element id.
func (p *Page) FormByID(formID string) (formbridge.Form, bool) {
	for _, id := range p.order {
		if f, ok := p.forms[id]; ok && f.ID == formID {
			return f, true
		}
	}
	return formbridge.Form{}, false
}

// Sources returns the widgets of a form as encoding sources.
func (p *Page) Sources(formID string) []formbridge.Source {
	var out []formbridge.Source
	for _, w := range p.gate.Widgets(formID) {
		if c, ok := w.(*widget.Controller); ok {
			out = append(out, c)
		}
	}
	return out
}

// Render renders the widget with id and records its controls.
func (p *Page) Render(id string) (string, error) {
	c, ok := p.widgets[id]
	if !ok {
		return "", fmt.Errorf("unknown widget %q", id)
	}

	r := render.NewRenderer(render.RendererConfig{HIDPrefix: id + "-"})
	html, err := r.RenderToString(c.Render())
	if err != nil {
		return "", fmt.Errorf("render widget %s: %w", id, err)
	}

	for _, hid := range p.hids[id] {
		delete(p.targets, hid)
	}
	hids := make([]string, 0, len(r.Controls()))
	for hid, ctrl := range r.Controls() {
		p.targets[hid] = target{widget: id, control: ctrl}
		hids = append(hids, hid)
	}
	p.hids[id] = hids
	return html, nil
}

// Control resolves a hydration id to its widget and control.
func (p *Page) Control(hid string) (widgetID string, ctrl vdom.Control, ok bool) {
	t, ok := p.targets[hid]
	return t.widget, t.control, ok
}

func (p *Page) renderAll() error {
	for _, id := range p.order {
		html, err := p.Render(id)
		if err != nil {
			return err
		}
		p.widgetSelection(id).ReplaceWithHtml(html)
	}
	return nil
}

func (p *Page) widgetSelection(id string) *goquery.Selection {
	return p.doc.Find(".file-uploader").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == id
	}).First()
}

// HTML returns the page with every widget rendered in its current state.
func (p *Page) HTML() (string, error) {
	if err := p.renderAll(); err != nil {
		return "", err
	}
	return p.doc.Html()
}

// Close tears down every widget.
func (p *Page) Close() {
	for _, id := range p.order {
		p.gate.Unregister(id)
		p.widgets[id].Close()
	}
}
