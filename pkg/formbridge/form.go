package formbridge

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Multipart is the encoding forms carrying files are switched to.
const Multipart = "multipart/form-data"

// Form describes a host form.
type Form struct {
	ID      string `json:"id"`
	Action  string `json:"action"`
	Method  string `json:"method"`
	Enctype string `json:"enctype"`

	// Selection is the form element in the parsed page.
	Selection *goquery.Selection `json:"-"`
}

// FindForm returns the form enclosing the widget with widgetID.
func FindForm(doc *goquery.Document, widgetID string) (Form, bool) {
	root := doc.Find(".file-uploader").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return id == widgetID
	}).First()
	if root.Length() == 0 {
		return Form{}, false
	}
	return FormOf(root)
}

// FormOf returns the nearest form ancestor of sel.
func FormOf(sel *goquery.Selection) (Form, bool) {
	form := sel.Closest("form")
	if form.Length() == 0 {
		return Form{}, false
	}
	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "")))
	if method == "" {
		method = "POST"
	}
	return Form{
		ID:        form.AttrOr("id", ""),
		Action:    form.AttrOr("action", ""),
		Method:    method,
		Enctype:   form.AttrOr("enctype", ""),
		Selection: form,
	}, true
}

// EnsureMultipart switches the form to multipart encoding.
func EnsureMultipart(form *Form) {
	if form.Selection != nil {
		form.Selection.SetAttr("enctype", Multipart)
	}
	form.Enctype = Multipart
}
