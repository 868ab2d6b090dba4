package vdom

// Control is the typed behaviour attached to an activatable element.
type Control interface {
	// Name identifies the control kind in logs and metrics.
	Name() string
}

// ControlBrowse opens the file picker.
type ControlBrowse struct{}

// ControlRemove removes the tracked file with Key.
type ControlRemove struct{ Key string }

// ControlNav moves the carousel. Dir is -1 (previous) or +1 (next).
type ControlNav struct{ Dir int }

// ControlReset discards every tracked file.
type ControlReset struct{}

// ControlPreview opens URL in a new window.
type ControlPreview struct{ URL string }

func (ControlBrowse) Name() string  { return "browse" }
func (ControlRemove) Name() string  { return "remove" }
func (ControlNav) Name() string     { return "nav" }
func (ControlReset) Name() string   { return "reset" }
func (ControlPreview) Name() string { return "preview" }
