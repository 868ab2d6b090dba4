package formbridge

import (
	"strings"

	uerrors "github.com/codz-dev/uploader/internal/errors"
)

// Widget is the part of a widget controller the Gate needs.
type Widget interface {
	ID() string
	CheckRequired() bool
	MarkRequired()
	ClearRequired()
}

// Verdict is the outcome of a submit check.
type Verdict struct {
	// Blocked is set when any widget in the form is missing a required file.
	Blocked bool

	// ScrollTo is the id of the first offending widget.
	ScrollTo string

	// Offending lists every offending widget id in document order.
	Offending []string
}

// Err returns the required-field error for a blocked verdict.
func (v Verdict) Err() error {
	if !v.Blocked {
		return nil
	}
	return uerrors.New("U030").WithDetail(strings.Join(v.Offending, ", "))
}

// Gate is the page-level submit check. It keeps only a registry of widgets
// by form and asks each widget for its state when a form is submitted.
// It is not safe for concurrent use.
type Gate struct {
	widgets map[string]Widget
	formOf  map[string]string
	order   map[string][]string
}

// NewGate returns an empty gate.
func NewGate() *Gate {
	return &Gate{
		widgets: make(map[string]Widget),
		formOf:  make(map[string]string),
		order:   make(map[string][]string),
	}
}

// Register adds w to the form with formID. Widgets are checked in the
// order they were registered.
func (g *Gate) Register(formID string, w Widget) {
	id := w.ID()
	if _, ok := g.widgets[id]; ok {
		g.Unregister(id)
	}
	g.widgets[id] = w
	g.formOf[id] = formID
	g.order[formID] = append(g.order[formID], id)
}

// Unregister removes the widget with id.
func (g *Gate) Unregister(id string) {
	formID, ok := g.formOf[id]
	if !ok {
		return
	}
	delete(g.widgets, id)
	delete(g.formOf, id)
	ids := g.order[formID]
	for i, wid := range ids {
		if wid == id {
			g.order[formID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(g.order[formID]) == 0 {
		delete(g.order, formID)
	}
}

// FormOf returns the form id a widget is registered under.
func (g *Gate) FormOf(id string) (string, bool) {
	formID, ok := g.formOf[id]
	return formID, ok
}

// Widgets returns the widgets of a form in registration order.
func (g *Gate) Widgets(formID string) []Widget {
	ids := g.order[formID]
	out := make([]Widget, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.widgets[id])
	}
	return out
}

// Check runs the required check for every widget in the form. Offending
// widgets are marked; satisfied ones have their mark cleared.
func (g *Gate) Check(formID string) Verdict {
	var v Verdict
	for _, w := range g.Widgets(formID) {
		if w.CheckRequired() {
			w.ClearRequired()
			continue
		}
		w.MarkRequired()
		v.Blocked = true
		v.Offending = append(v.Offending, w.ID())
		if v.ScrollTo == "" {
			v.ScrollTo = w.ID()
		}
	}
	return v
}

// Changed clears the widget's required mark once it has new files.
func (g *Gate) Changed(id string) {
	if w, ok := g.widgets[id]; ok {
		w.ClearRequired()
	}
}
