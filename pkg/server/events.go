package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/collection"
	"github.com/codz-dev/uploader/pkg/formbridge"
	"github.com/codz-dev/uploader/pkg/upload"
	"github.com/codz-dev/uploader/pkg/widget"
)

// handleFrame routes a decoded client frame. It runs on the reader; any
// I/O a frame needs happens here so the event loop never waits on it.
func (s *Session) handleFrame(in *Inbound) {
	switch in.Type {
	case FramePing:
		s.send(Outbound{Type: FramePong, TS: in.TS})

	case FrameSelect:
		s.queue(&event{kind: in.Type, widget: in.Widget, run: func(context.Context) error {
			return s.precheck(in.Widget, in.Batch, in.Selected, in.Drop)
		}})

	case FrameFiles:
		cands, err := s.candidates(in.Files)
		s.queue(&event{kind: in.Type, widget: in.Widget, run: func(context.Context) error {
			if err != nil {
				return err
			}
			return s.intake(in.Widget, cands, in.Drop)
		}})

	case FrameClick:
		s.queue(&event{kind: in.Type, run: func(context.Context) error {
			return s.click(in.HID)
		}})

	case FrameDrag:
		s.queue(&event{kind: in.Type, widget: in.Widget, run: func(context.Context) error {
			c, err := s.widget(in.Widget)
			if err != nil {
				return err
			}
			if in.Over {
				c.DragOver()
			} else {
				c.DragLeave()
			}
			return nil
		}})

	case FrameResize:
		s.queue(&event{kind: in.Type, widget: in.Widget, run: func(context.Context) error {
			c, err := s.widget(in.Widget)
			if err != nil {
				return err
			}
			c.Resize(in.Width)
			return nil
		}})

	case FrameSubmit:
		s.queue(&event{kind: in.Type, run: func(ctx context.Context) error {
			return s.submit(ctx, in.Form, in.Fields)
		}})

	default:
		s.wsError("unknown_frame")
		s.send(errorFrame(uerrors.New("U050").WithDetail("unknown frame type " + in.Type)))
	}
}

// candidates resolves staged temp ids. Metadata comes from the store, not
// the client. On failure every handle already resolved is released.
func (s *Session) candidates(refs []FileRef) ([]widget.Candidate, error) {
	cands := make([]widget.Candidate, 0, len(refs))
	for _, ref := range refs {
		st, err := s.store.Stat(s.ctx, ref.TempID)
		if err != nil {
			for _, c := range cands {
				_ = c.Blob.Release()
			}
			return nil, uerrors.New("U012").WithDetail(ref.TempID).Wrap(err)
		}
		cands = append(cands, widget.Candidate{
			Name: st.Filename,
			Type: st.ContentType,
			Size: st.Size,
			Blob: upload.NewBlob(s.store, st.ID),
		})
	}
	return cands, nil
}

func (s *Session) widget(id string) (*widget.Controller, error) {
	c, ok := s.page.Widget(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWidget, id)
	}
	return c, nil
}

// precheck validates a selection before the client uploads it. An
// accepted batch is answered with a stage frame, a rejected one with a
// discard frame; the widget shows the rejection notice itself.
func (s *Session) precheck(widgetID, batch string, files []FileMeta, drop bool) error {
	c, err := s.widget(widgetID)
	if err != nil {
		s.send(Outbound{Type: FrameDiscard, Widget: widgetID, Batch: batch})
		return err
	}
	if drop {
		c.DragLeave()
	}
	cands := make([]widget.Candidate, 0, len(files))
	for _, f := range files {
		cands = append(cands, widget.Candidate{Name: f.Name, Type: f.Type, Size: f.Size})
	}
	if err := c.Check(cands); err != nil {
		s.send(Outbound{Type: FrameDiscard, Widget: widgetID, Batch: batch})
		return err
	}
	s.send(Outbound{Type: FrameStage, Widget: widgetID, Batch: batch})
	return nil
}

func (s *Session) intake(widgetID string, cands []widget.Candidate, drop bool) error {
	c, err := s.widget(widgetID)
	if err != nil {
		for _, cand := range cands {
			_ = cand.Blob.Release()
		}
		return err
	}
	if drop {
		err = c.Drop(cands)
	} else {
		err = c.Intake(cands)
	}
	if err == nil {
		s.page.Gate().Changed(widgetID)
	}
	return err
}

func (s *Session) click(hid string) error {
	widgetID, ctrl, ok := s.page.Control(hid)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownControl, hid)
	}
	c, err := s.widget(widgetID)
	if err != nil {
		return err
	}
	return c.Dispatch(ctrl)
}

// submit runs the required gate for a form. A blocked form is reported
// to the client; otherwise the form is encoded and forwarded off the loop.
func (s *Session) submit(_ context.Context, formID string, fields url.Values) error {
	form, ok := s.page.FormByID(formID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}

	v := s.page.Gate().Check(formID)
	if v.Blocked {
		if s.metrics != nil {
			s.metrics.Submission("blocked")
		}
		s.logger.Info("submission blocked", "form", formID, "offending", v.Offending)
		s.send(Outbound{Type: FrameBlocked, Form: formID, Offending: v.Offending})
		s.send(Outbound{Type: FrameScroll, Widget: v.ScrollTo})
		return nil
	}

	sub := formbridge.Submission{
		Form:  form,
		Base:  s.base,
		Token: s.page.CSRFToken(),
	}
	if s.cookie != "" {
		sub.Header = http.Header{"Cookie": {s.cookie}}
	}
	go s.forward(sub, fields, snapshot(s.page.Sources(formID)))
	return nil
}

// forward encodes and sends a submission. It runs off the loop and only
// touches the snapshot it was given.
func (s *Session) forward(sub formbridge.Submission, fields url.Values, sources []formbridge.Source) {
	var body bytes.Buffer
	contentType, err := formbridge.Encode(&body, fields, sources...)
	if err != nil {
		s.submissionFailed(uerrors.FromError(err, "U061"))
		return
	}
	sub.ContentType = contentType
	sub.Body = &body

	res, err := s.submitter.Submit(s.ctx, sub)
	if err != nil {
		s.submissionFailed(err)
		return
	}
	if s.metrics != nil {
		s.metrics.Submission("forwarded")
	}

	out := Outbound{
		Type:     FrameSubmitted,
		Form:     sub.Form.ID,
		Status:   res.Status,
		Location: res.Location,
	}
	if !res.Redirected() && strings.HasPrefix(res.ContentType, "text/html") {
		out.HTML = string(res.Body)
	}
	s.send(out)
}

func (s *Session) submissionFailed(err error) {
	if s.metrics != nil {
		s.metrics.Submission("failed")
	}
	s.logger.Warn("submission failed", "error", err)
	s.send(errorFrame(err))
}

// source is a point-in-time copy of a widget for encoding off the loop.
type source struct {
	config  widget.Config
	pending []collection.File
	hidden  string
	ok      bool
}

func (s source) Config() widget.Config       { return s.config }
func (s source) Pending() []collection.File  { return s.pending }
func (s source) HiddenValue() (string, bool) { return s.hidden, s.ok }

func snapshot(sources []formbridge.Source) []formbridge.Source {
	out := make([]formbridge.Source, 0, len(sources))
	for _, src := range sources {
		hidden, ok := src.HiddenValue()
		out = append(out, source{
			config:  src.Config(),
			pending: append([]collection.File(nil), src.Pending()...),
			hidden:  hidden,
			ok:      ok,
		})
	}
	return out
}
