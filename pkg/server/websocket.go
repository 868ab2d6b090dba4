package server

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"

	uerrors "github.com/codz-dev/uploader/internal/errors"
	"github.com/codz-dev/uploader/pkg/middleware"
)

// keepAliveEvery throttles how often activity refreshes the page TTL.
const keepAliveEvery = time.Minute

// event is a client frame queued for the event loop.
type event struct {
	kind   string
	widget string
	run    func(ctx context.Context) error
}

// ReadLoop reads frames from l until the connection drops, then detaches
// it. The session itself stays alive for a reconnect.
func (s *Session) ReadLoop(l *link) {
	defer s.detach(l)

	conn := l.conn
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		s.touch()
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.wsError("read")
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		s.touch()

		if !s.limiter.Allow() {
			s.wsError("rate_limited")
			s.send(errorFrame(uerrors.New("U051")))
			continue
		}

		in, err := decodeInbound(msg)
		if err != nil {
			s.logger.Warn("frame decode error", "error", err)
			s.wsError("decode")
			s.send(errorFrame(err))
			continue
		}
		s.handleFrame(in)
	}
}

// WriteLoop drains l's outbound queue and sends heartbeat pings.
func (s *Session) WriteLoop(l *link) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-l.out:
			l.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Warn("write error", "error", err)
				s.wsError("write")
				s.detach(l)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := l.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.wsError("ping")
				s.detach(l)
				return
			}

		case <-l.done:
			return

		case <-s.done:
			return
		}
	}
}

// EventLoop runs queued events and dispatched callbacks, re-rendering
// changed widgets after each.
func (s *Session) EventLoop() {
	for {
		select {
		case ev := <-s.events:
			s.handleEvent(ev)

		case fn := <-s.dispatchCh:
			s.executeDispatch(fn)

		case <-s.done:
			return
		}
	}
}

// queue hands ev to the event loop without blocking the reader.
func (s *Session) queue(ev *event) {
	select {
	case s.events <- ev:
	default:
		s.wsError("queue_full")
		s.send(errorFrame(uerrors.New("U051").Wrap(ErrEventQueueFull)))
	}
}

func (s *Session) handleEvent(ev *event) {
	ctx, span := middleware.StartEvent(s.ctx, s.ID, ev.kind, ev.widget)
	start := time.Now()

	err := s.safely(ev.kind, ev.widget, func() error { return ev.run(ctx) })

	middleware.EndEvent(span, err)
	if s.metrics != nil {
		s.metrics.Event(ev.kind, time.Since(start), err)
	}
	if err != nil {
		s.logger.Debug("event failed", "type", ev.kind, "widget", ev.widget, "error", err)
		if clientVisible(err) {
			s.send(errorFrame(err))
		}
	}
	s.flush()
}

func (s *Session) executeDispatch(fn func()) {
	_ = s.safely("dispatch", "", func() error {
		fn()
		return nil
	})
	s.flush()
}

// safely runs fn, turning a panic into a HandlerError.
func (s *Session) safely(kind, widget string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			s.logger.Error("handler panic",
				"type", kind,
				"widget", widget,
				"panic", r,
				"stack", string(stack))
			err = NewHandlerError(s.ID, widget, kind, r, stack)
		}
	}()
	return fn()
}

// clientVisible reports whether err is worth a frame. Validation and
// required errors already show inside the widget.
func clientVisible(err error) bool {
	switch uerrors.CategoryOf(err) {
	case uerrors.CategoryTransport, uerrors.CategoryStorage:
		return true
	}
	return false
}

func (s *Session) wsError(kind string) {
	if s.metrics != nil {
		s.metrics.WebSocketError(kind)
	}
}
