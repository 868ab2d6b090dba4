package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/codz-dev/uploader/pkg/formbridge"
	"github.com/codz-dev/uploader/pkg/middleware"
	"github.com/codz-dev/uploader/pkg/mount"
	"github.com/codz-dev/uploader/pkg/upload"
)

// Session is the live state of one mounted page. Its EventLoop is the
// single owner of the page's widget controllers; it implements
// widget.Loop for them.
type Session struct {
	// Identity
	ID        string
	CreatedAt time.Time

	// Page
	page   *mount.Page
	base   string // page URL, for relative actions
	cookie string // the user's cookies, forwarded on submit

	// Collaborators
	store     upload.Store
	submitter *formbridge.Submitter
	metrics   *middleware.Metrics

	// Channels
	events     chan *event
	dispatchCh chan func()
	done       chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool
	started   atomic.Bool

	// Connection
	mu   sync.Mutex // protects link
	link *link

	limiter    *rate.Limiter
	lastActive atomic.Int64
	refreshed  atomic.Int64

	// keepAlive refreshes the page TTL; set by the manager.
	keepAlive func()

	// dirty holds widgets to re-render. Loop-owned.
	dirty map[string]bool

	// ctx is cancelled on Close; background work derives from it.
	ctx    context.Context
	cancel context.CancelFunc

	config *SessionConfig
	logger *slog.Logger
}

// link is one WebSocket connection to a session. Frames queued on a link
// are lost with it; the next attach re-renders everything.
type link struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (l *link) close() {
	l.once.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fatal on entropy failure
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates a session. The page is attached with setPage before
// Start, since mounting needs the session as the widgets' loop.
func newSession(config *SessionConfig, store upload.Store, submitter *formbridge.Submitter, metrics *middleware.Metrics, logger *slog.Logger) *Session {
	id := generateSessionID()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		store:      store,
		submitter:  submitter,
		metrics:    metrics,
		events:     make(chan *event, config.MaxEventQueue),
		dispatchCh: make(chan func(), config.MaxEventQueue),
		done:       make(chan struct{}),
		limiter:    rate.NewLimiter(rate.Limit(config.EventRate), config.EventBurst),
		dirty:      make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
		config:     config,
		logger:     logger.With("session_id", id),
	}
	s.touch()
	return s
}

func (s *Session) setPage(p *mount.Page, base, cookie string) {
	s.page = p
	s.base = base
	s.cookie = cookie
	p.OnChange = s.markDirty
}

// Page returns the mounted page.
func (s *Session) Page() *mount.Page { return s.page }

// Dispatch queues fn to run on the event loop. It blocks while the queue
// is full and drops fn once the session is closed.
func (s *Session) Dispatch(fn func()) {
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	}
}

// AfterFunc runs fn on the event loop after d. Once stop has been called
// from the loop, fn will not run even if its timer already fired.
func (s *Session) AfterFunc(d time.Duration, fn func()) func() bool {
	var stopped atomic.Bool
	t := time.AfterFunc(d, func() {
		s.Dispatch(func() {
			if !stopped.Load() {
				fn()
			}
		})
	})
	return func() bool {
		stopped.Store(true)
		return t.Stop()
	}
}

// Start starts the event loop.
func (s *Session) Start() {
	if s.started.CompareAndSwap(false, true) {
		go s.EventLoop()
	}
}

// Attach connects a WebSocket to the session, replacing any previous
// connection, and schedules a full re-render.
func (s *Session) Attach(conn *websocket.Conn) {
	l := &link{
		conn: conn,
		out:  make(chan []byte, s.config.MaxEventQueue),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	old := s.link
	s.link = l
	s.mu.Unlock()
	if old != nil {
		old.close()
	}

	s.touch()
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	s.logger.Info("client attached", "replaced", old != nil)

	go s.ReadLoop(l)
	go s.WriteLoop(l)

	s.Dispatch(s.renderAll)
}

// detach drops l if it is still the current connection.
func (s *Session) detach(l *link) {
	s.mu.Lock()
	current := s.link == l
	if current {
		s.link = nil
	}
	s.mu.Unlock()

	l.close()
	if current {
		if s.metrics != nil {
			s.metrics.SessionClosed()
		}
		s.logger.Info("client detached")
	}
}

// Connected reports whether a client is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

// send queues a frame for the attached client. Frames are dropped while
// no client is attached or its queue is full.
func (s *Session) send(f Outbound) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	l := s.link
	s.mu.Unlock()
	if l == nil {
		return
	}

	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("encode frame", "type", f.Type, "error", err)
		return
	}
	select {
	case l.out <- data:
	default:
		s.logger.Warn("outbound queue full, frame dropped", "type", f.Type)
	}
}

func (s *Session) markDirty(widgetID string) {
	s.dirty[widgetID] = true
}

// flush re-renders dirty widgets in document order. Loop only.
func (s *Session) flush() {
	if len(s.dirty) == 0 {
		return
	}
	for _, w := range s.page.Widgets() {
		id := w.ID()
		if !s.dirty[id] {
			continue
		}
		html, err := s.page.Render(id)
		if err != nil {
			s.logger.Error("render widget", "widget", id, "error", err)
			continue
		}
		s.send(Outbound{Type: FrameRender, Widget: id, HTML: html})
	}
	clear(s.dirty)
}

func (s *Session) renderAll() {
	for _, w := range s.page.Widgets() {
		s.dirty[w.ID()] = true
	}
	s.flush()
}

func (s *Session) touch() {
	now := time.Now().UnixNano()
	s.lastActive.Store(now)
	if s.keepAlive == nil {
		return
	}
	last := s.refreshed.Load()
	if time.Duration(now-last) >= keepAliveEvery && s.refreshed.CompareAndSwap(last, now) {
		s.keepAlive()
	}
}

// LastActive returns the time of the last client activity.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// IsClosed reports whether the session was closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Close stops the session and tears down its widgets. It is safe to call
// more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		l := s.link
		s.link = nil
		s.mu.Unlock()
		if l != nil {
			l.close()
			if s.metrics != nil {
				s.metrics.SessionClosed()
			}
		}

		if s.page != nil {
			if s.started.Load() {
				s.teardown()
			} else {
				s.page.Close()
			}
		}

		s.closed.Store(true)
		s.cancel()
		close(s.done)
		s.logger.Info("session closed")
	})
}

// teardown closes the page on the loop that owns its widgets.
func (s *Session) teardown() {
	finished := make(chan struct{})
	select {
	case s.dispatchCh <- func() {
		s.page.Close()
		close(finished)
	}:
	default:
		s.logger.Warn("dispatch queue full, page teardown skipped")
		return
	}
	select {
	case <-finished:
	case <-time.After(s.config.WriteTimeout):
		s.logger.Warn("page teardown timed out")
	}
}
