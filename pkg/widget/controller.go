// Package widget is the upload widget's controller.
//
// A Controller owns one widget's state: the tracked files, the carousel
// position, the visible notices and the drag, required and busy flags.
// Every method must be called from the owning Loop. Deletion requests run
// in the background and report back through Loop.Dispatch.
//
//	ctrl := widget.New(cfg, widget.Options{Loop: session, Deleter: client})
//	if err := ctrl.Intake(cands); err != nil {
//		// the batch was rejected and an error notice is showing
//	}
//	node := ctrl.Render()
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/accept"
	"github.com/codz-dev/uploader/pkg/carousel"
	"github.com/codz-dev/uploader/pkg/collection"
	"github.com/codz-dev/uploader/pkg/deletion"
	"github.com/codz-dev/uploader/pkg/i18n"
	"github.com/codz-dev/uploader/pkg/toast"
	"github.com/codz-dev/uploader/pkg/vdom"
)

// Candidate is a file offered to the widget by a drop or the file picker.
// Its bytes are already staged behind Blob.
type Candidate struct {
	Name string
	Type string
	Size int64
	Blob collection.Blob
}

// Controller is the state machine of one widget.
type Controller struct {
	cfg    Config
	opts   Options
	logger *slog.Logger

	tr      *i18n.Translator
	accept  *accept.Matcher
	files   *collection.Collection
	strip   *carousel.Carousel
	notices *toast.Board

	dragging      bool
	requiredError bool
	busy          map[string]bool
	width         int
	closed        bool

	// preview tokens issued by the last Render
	tokens []string
}

// New returns a controller seeded with cfg.Existing.
func New(cfg Config, opts Options) *Controller {
	opts.applyDefaults()
	if cfg.MaxSizeKB <= 0 {
		cfg.MaxSizeKB = DefaultMaxSizeKB
	}
	if cfg.DeleteMethod == "" {
		cfg.DeleteMethod = DefaultDeleteMethod
	}

	c := &Controller{
		cfg:     cfg,
		opts:    opts,
		logger:  opts.Logger.With("component", "widget", "widget", cfg.ID),
		tr:      i18n.New(cfg.Lang),
		accept:  accept.New(cfg.Accept),
		files:   collection.New(cfg.Single),
		strip:   carousel.New(opts.Loop),
		notices: toast.NewBoard(opts.Loop),
		busy:    make(map[string]bool),
	}
	c.strip.OnSettle = c.changed
	c.notices.OnChange = c.changed

	remotes := make([]collection.File, 0, len(cfg.Existing))
	for _, e := range cfg.Existing {
		remotes = append(remotes, collection.NewRemote(string(e.ID), e.URL, e.DeleteURL))
	}
	c.files.Seed(remotes...)
	return c
}

// ID returns the widget root id.
func (c *Controller) ID() string { return c.cfg.ID }

// Config returns the widget configuration.
func (c *Controller) Config() Config { return c.cfg }

// Files returns a snapshot of the tracked files in display order.
func (c *Controller) Files() []collection.File { return c.files.All() }

// Pending returns the files selected in this session.
func (c *Controller) Pending() []collection.File { return c.files.PendingOnly() }

// RemoteIDs returns the ids of retained remote files.
func (c *Controller) RemoteIDs() []string { return c.files.RemoteIdentifiers() }

// Dragging reports whether a drag is over the widget.
func (c *Controller) Dragging() bool { return c.dragging }

// RequiredError reports whether the widget is marked as missing a
// required file.
func (c *Controller) RequiredError() bool { return c.requiredError }

// Busy reports whether the file with key has a deletion in flight.
func (c *Controller) Busy(key string) bool { return c.busy[key] }

// Notice returns the visible notice of the given type.
func (c *Controller) Notice(level toast.Type) (string, bool) { return c.notices.Message(level) }

// Carousel exposes the strip state.
func (c *Controller) Carousel() *carousel.Carousel { return c.strip }

// Check runs the accept and size checks on a batch the client is about to
// stage. Only Name, Type and Size are read. A failing batch shows the same
// single error notice Intake would.
func (c *Controller) Check(cands []Candidate) error {
	if c.closed || len(cands) == 0 {
		return nil
	}
	return c.validate(cands)
}

// Intake validates and commits a batch of candidates. The batch is atomic:
// the first candidate that fails the accept or size check rejects all of
// them, releases their blobs and shows a single error notice.
func (c *Controller) Intake(cands []Candidate) error {
	if c.closed || len(cands) == 0 {
		return nil
	}
	if err := c.validate(cands); err != nil {
		return err
	}

	if c.cfg.Single && len(cands) > 1 {
		releaseCandidates(c.logger, cands[1:])
		cands = cands[:1]
	}

	batch := make([]collection.File, 0, len(cands))
	for _, cand := range cands {
		batch = append(batch, collection.NewPending(cand.Name, cand.Type, cand.Size, cand.Blob))
	}
	replaced := c.files.AddPending(batch)
	releaseFiles(c.logger, replaced)

	c.strip.Reset()
	c.requiredError = false
	c.opts.Recorder.FilesAccepted(len(batch))
	c.logger.Debug("files accepted", "count", len(batch), "total", c.files.Count())
	c.changed()
	return nil
}

func (c *Controller) validate(cands []Candidate) error {
	for _, cand := range cands {
		if !c.accept.Match(cand.Name, cand.Type) {
			c.notices.Error(c.tr.T(i18n.KeyErrUnsupported, c.accept.Format(c.tr.T(i18n.KeyFiles))))
			return c.reject(cands, "type", uerrors.New("U010").WithDetail(cand.Name))
		}
		if cand.Size > c.maxBytes() {
			size := fmt.Sprintf("%.2f", float64(cand.Size)/(1024*1024))
			c.notices.Error(c.tr.T(i18n.KeyErrMaxSize, size, c.maxSizeMB()))
			return c.reject(cands, "size", uerrors.New("U011").WithDetail(cand.Name))
		}
	}
	return nil
}

// maxBytes is the widget limit, lowered to the staging cap when that is
// smaller.
func (c *Controller) maxBytes() int64 {
	limit := c.cfg.MaxSizeKB * 1024
	if c.opts.StagingLimit > 0 && c.opts.StagingLimit < limit {
		return c.opts.StagingLimit
	}
	return limit
}

func (c *Controller) maxSizeMB() string {
	return strconv.FormatFloat(float64(c.maxBytes())/(1024*1024), 'f', 1, 64)
}

func (c *Controller) reject(cands []Candidate, reason string, err error) error {
	releaseCandidates(c.logger, cands)
	c.opts.Recorder.BatchRejected(reason)
	c.logger.Info("batch rejected", "reason", reason, "count", len(cands), "error", err)
	c.changed()
	return err
}

// Drop ends a drag and takes the dropped files.
func (c *Controller) Drop(cands []Candidate) error {
	c.dragging = false
	return c.Intake(cands)
}

// Remove removes the file at index in display order.
func (c *Controller) Remove(index int) {
	f, ok := c.files.At(index)
	if !ok {
		return
	}
	c.RemoveKey(f.Key)
}

// RemoveKey removes the file with key. A remote file with a deletion URL
// is removed only once its deletion request succeeds.
func (c *Controller) RemoveKey(key string) {
	if c.closed || c.busy[key] {
		return
	}
	f, ok := c.files.Get(key)
	if !ok {
		return
	}

	if f.Deletable() && c.opts.Deleter != nil {
		c.busy[key] = true
		c.startDeletion(f)
		c.changed()
		return
	}

	c.files.Remove(key)
	if f.IsPending() {
		releaseFiles(c.logger, []collection.File{f})
	}
	c.afterRemoval()
	c.changed()
}

func (c *Controller) afterRemoval() {
	c.strip.Clamp(c.files.Count()+1, c.clientWidth())
	if c.files.IsEmpty() {
		c.requiredError = false
	}
}

func (c *Controller) deletionRequest(f collection.File) deletion.Request {
	return deletion.Request{
		URL:    f.DeleteURL,
		Method: c.cfg.DeleteMethod,
		Token:  c.opts.CSRFToken,
		Header: c.opts.header(),
		Base:   c.opts.BaseURL,
	}
}

func (c *Controller) startDeletion(f collection.File) {
	req := c.deletionRequest(f)
	deleter := c.opts.Deleter
	loop := c.opts.Loop
	go func() {
		start := time.Now()
		err := deleter.Delete(context.Background(), req)
		elapsed := time.Since(start)
		loop.Dispatch(func() { c.finishDeletion(f.Key, err, elapsed) })
	}()
}

func (c *Controller) finishDeletion(key string, err error, elapsed time.Duration) {
	if c.closed {
		return
	}
	if !c.busy[key] {
		// the entry was reset away while its request was in flight
		c.opts.Recorder.DeletionFinished(outcome(err), elapsed)
		c.logger.Debug("deletion finished after reset", "key", key, "error", err)
		return
	}
	delete(c.busy, key)

	if err != nil {
		c.opts.Recorder.DeletionFinished("failure", elapsed)
		msg := c.tr.T(i18n.KeyErrDeleteFile)
		var derr *deletion.Error
		if errors.As(err, &derr) && strings.TrimSpace(derr.Message) != "" {
			msg = derr.Message
		}
		c.logger.Warn("deletion failed", "key", key, "error", err)
		c.notices.Error(msg)
		c.changed()
		return
	}

	c.opts.Recorder.DeletionFinished("success", elapsed)
	if _, ok := c.files.Remove(key); ok {
		c.afterRemoval()
		c.notices.Success(c.tr.T(i18n.KeySuccessDeleteFile))
	}
	c.changed()
}

// Reset discards every tracked file. Deletion requests for remote files
// are sent without waiting for their outcome; a file whose deletion is
// already in flight is not requested again.
func (c *Controller) Reset() {
	if c.closed {
		return
	}
	for _, f := range c.files.Reset() {
		switch {
		case f.IsPending():
			releaseFiles(c.logger, []collection.File{f})
		case f.Deletable() && c.opts.Deleter != nil && !c.busy[f.Key]:
			c.fireAndForget(f)
		}
	}
	clear(c.busy)
	c.strip.Reset()
	c.requiredError = false
	c.notices.Clear(toast.TypeError)
	c.changed()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (c *Controller) fireAndForget(f collection.File) {
	req := c.deletionRequest(f)
	deleter := c.opts.Deleter
	recorder := c.opts.Recorder
	logger := c.logger
	go func() {
		start := time.Now()
		if err := deleter.Delete(context.Background(), req); err != nil {
			recorder.DeletionFinished("failure", time.Since(start))
			logger.Warn("reset deletion failed", "url", req.URL, "error", err)
			return
		}
		recorder.DeletionFinished("success", time.Since(start))
		logger.Debug("reset deletion ok", "url", req.URL)
	}()
}

// DragOver marks a drag over the widget.
func (c *Controller) DragOver() {
	if c.dragging {
		return
	}
	c.dragging = true
	c.changed()
}

// DragLeave clears the drag state.
func (c *Controller) DragLeave() {
	if !c.dragging {
		return
	}
	c.dragging = false
	c.changed()
}

// Navigate moves the carousel one item back (dir < 0) or forward.
func (c *Controller) Navigate(dir int) bool {
	if c.closed || c.cfg.Single {
		return false
	}
	moved := c.strip.Navigate(dir, c.files.Count()+1, c.clientWidth())
	if moved {
		c.changed()
	}
	return moved
}

// Resize records the widget's client width in px.
func (c *Controller) Resize(width int) {
	if width <= 0 || width == c.width {
		return
	}
	c.width = width
	c.strip.Clamp(c.files.Count()+1, width)
	c.changed()
}

func (c *Controller) clientWidth() int {
	if c.width > 0 {
		return c.width
	}
	return carousel.DefaultVisible*carousel.ItemWidth + carousel.Gutter
}

// Dispatch routes an activated control. Browse and preview controls are
// handled by the client and are accepted as no-ops.
func (c *Controller) Dispatch(ctrl vdom.Control) error {
	switch v := ctrl.(type) {
	case vdom.ControlRemove:
		c.RemoveKey(v.Key)
	case vdom.ControlNav:
		c.Navigate(v.Dir)
	case vdom.ControlReset:
		c.Reset()
	case vdom.ControlBrowse, vdom.ControlPreview:
	default:
		return fmt.Errorf("widget %s: unknown control %T", c.cfg.ID, ctrl)
	}
	return nil
}

// CheckRequired reports whether the widget lets its form submit.
func (c *Controller) CheckRequired() bool {
	if !c.cfg.Required {
		return true
	}
	if c.files.PendingCount() > 0 {
		return true
	}
	return c.opts.RequiredCountsRemote && c.files.Count() > 0
}

// MarkRequired flags the widget as missing a required file.
func (c *Controller) MarkRequired() {
	c.requiredError = true
	c.notices.Error(c.tr.T(i18n.KeyErrRequired, strings.ToLower(c.cfg.FieldLabel())))
	c.changed()
}

// ClearRequired drops the required flag once the widget is satisfied.
func (c *Controller) ClearRequired() {
	if c.requiredError && c.CheckRequired() {
		c.requiredError = false
		c.changed()
	}
}

// Close releases pending blobs and preview tokens and stops every timer.
// Deletion completions that arrive later are ignored.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.releaseTokens()
	releaseFiles(c.logger, c.files.PendingOnly())
	c.strip.Reset()
	c.notices.Close()
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool { return c.closed }

func (c *Controller) changed() {
	if c.closed || c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange()
}

func (c *Controller) releaseTokens() {
	if c.opts.Previews == nil {
		c.tokens = nil
		return
	}
	for _, t := range c.tokens {
		c.opts.Previews.Release(t)
	}
	c.tokens = c.tokens[:0]
}

func releaseCandidates(logger *slog.Logger, cands []Candidate) {
	for _, cand := range cands {
		releaseBlob(logger, cand.Blob)
	}
}

func releaseFiles(logger *slog.Logger, files []collection.File) {
	for _, f := range files {
		releaseBlob(logger, f.Blob)
	}
}

// releaseBlob frees staged bytes off the loop; stores may be remote.
func releaseBlob(logger *slog.Logger, b collection.Blob) {
	if b == nil {
		return
	}
	go func() {
		if err := b.Release(); err != nil {
			logger.Warn("release staged file", "temp_id", b.ID(), "error", err)
		}
	}()
}
