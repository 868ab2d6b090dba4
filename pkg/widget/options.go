package widget

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/codz-dev/uploader/pkg/deletion"
)

// DefaultPreviewPath is where preview tokens are served.
const DefaultPreviewPath = "/_uploader/preview"

// Loop is the event loop that owns a controller. Every controller method
// runs on it, and so do the callbacks it is handed.
type Loop interface {
	// Dispatch queues fn to run on the loop.
	Dispatch(fn func())

	// AfterFunc runs fn on the loop after d. The returned stop cancels it.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Deleter sends deletion requests. *deletion.Client implements it.
type Deleter interface {
	Delete(ctx context.Context, req deletion.Request) error
}

// Previews issues one-shot preview tokens for staged files.
// *upload.Previews implements it.
type Previews interface {
	Acquire(tempID, contentType string) string
	Release(token string)
}

// Recorder receives widget events for metrics.
type Recorder interface {
	FilesAccepted(n int)
	BatchRejected(reason string)
	DeletionFinished(outcome string, d time.Duration)
}

// Options are the collaborators injected into a controller.
type Options struct {
	// Loop is required.
	Loop Loop

	// Deleter sends deletion requests. Without one, deletable files are
	// removed locally.
	Deleter Deleter

	// Previews issues preview URLs for pending images. Without it, pending
	// images are shown as a type badge.
	Previews Previews

	// PreviewPath prefixes preview URLs. Defaults to DefaultPreviewPath.
	PreviewPath string

	Recorder Recorder
	Logger   *slog.Logger

	// CSRFToken is sent with mutating deletion requests.
	CSRFToken string

	// Cookie is forwarded with deletion requests.
	Cookie string

	// BaseURL is the host page URL relative deletion URLs resolve against.
	BaseURL string

	// StagingLimit is the largest file the staging endpoint takes, in
	// bytes. A widget limit above it is lowered to it. Zero means no cap.
	StagingLimit int64

	// RequiredCountsRemote lets retained remote files satisfy the required
	// check. By default only newly selected files do.
	RequiredCountsRemote bool

	// OnChange runs on the loop whenever the widget needs re-rendering
	// outside a direct call, e.g. after a deletion completes.
	OnChange func()
}

func (o *Options) applyDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.PreviewPath == "" {
		o.PreviewPath = DefaultPreviewPath
	}
}

func (o *Options) header() http.Header {
	if o.Cookie == "" {
		return nil
	}
	return http.Header{"Cookie": {o.Cookie}}
}

type nopRecorder struct{}

func (nopRecorder) FilesAccepted(int)                      {}
func (nopRecorder) BatchRejected(string)                   {}
func (nopRecorder) DeletionFinished(string, time.Duration) {}
