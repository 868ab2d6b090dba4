package server

import (
	"encoding/json"
	"net/url"

	uerrors "github.com/codz-dev/uploader/internal/errors"
)

// Client frame types.
const (
	FrameSelect = "select"
	FrameFiles  = "files"
	FrameClick  = "click"
	FrameDrag   = "drag"
	FrameResize = "resize"
	FrameSubmit = "submit"
	FramePing   = "ping"
)

// Server frame types.
const (
	FrameRender    = "render"
	FrameStage     = "stage"
	FrameDiscard   = "discard"
	FrameScroll    = "scroll"
	FrameBlocked   = "blocked"
	FrameSubmitted = "submitted"
	FrameError     = "error"
	FramePong      = "pong"
)

// FileRef names a file the client staged through the upload endpoint.
// Only the temp id is trusted; metadata comes from the store.
type FileRef struct {
	TempID string `json:"temp_id"`
}

// FileMeta describes a file the client wants to stage. It is checked
// against the widget's limits before any bytes are sent.
type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Inbound is a frame from the client.
type Inbound struct {
	Type string `json:"type"`

	// Widget is the target widget for files, drag and resize.
	Widget string `json:"widget,omitempty"`

	// HID is the clicked element's hydration id.
	HID string `json:"hid,omitempty"`

	// Batch names a selection across its select, stage and files frames.
	Batch string `json:"batch,omitempty"`

	// Selected lists the files of a select frame.
	Selected []FileMeta `json:"selected,omitempty"`

	// Files and Drop describe a files frame. Drop marks files dropped
	// onto the widget rather than picked in the dialog.
	Files []FileRef `json:"files,omitempty"`
	Drop  bool      `json:"drop,omitempty"`

	// Over is the drag state.
	Over bool `json:"over,omitempty"`

	// Width is the carousel container width in pixels.
	Width int `json:"width,omitempty"`

	// Form and Fields describe a submit: the form id and its non-file
	// fields.
	Form   string     `json:"form,omitempty"`
	Fields url.Values `json:"fields,omitempty"`

	// TS echoes back in a pong.
	TS int64 `json:"ts,omitempty"`
}

// Outbound is a frame to the client.
type Outbound struct {
	Type string `json:"type"`

	Widget string `json:"widget,omitempty"`
	HTML   string `json:"html,omitempty"`
	Batch  string `json:"batch,omitempty"`

	Form      string   `json:"form,omitempty"`
	Offending []string `json:"offending,omitempty"`

	Status   int    `json:"status,omitempty"`
	Location string `json:"location,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	TS int64 `json:"ts,omitempty"`
}

func decodeInbound(msg []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		return nil, uerrors.New("U050").Wrap(err)
	}
	if in.Type == "" {
		return nil, uerrors.New("U050").WithDetail("missing frame type")
	}
	return &in, nil
}

// errorFrame describes err for the client.
func errorFrame(err error) Outbound {
	out := Outbound{Type: FrameError, Message: err.Error()}
	var coded *uerrors.Error
	if uerrors.As(err, &coded) {
		out.Code = coded.Code
		out.Message = coded.Message
	}
	return out
}
