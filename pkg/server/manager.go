package server

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionManager holds the sessions of mounted pages. A page lives until
// its TTL passes without activity or it is pushed out as least recently
// used; either way the session is closed.
type SessionManager struct {
	pages  *expirable.LRU[string, *Session]
	logger *slog.Logger

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
}

// ManagerStats is a snapshot of manager counters.
type ManagerStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
}

// NewSessionManager returns a manager keeping at most size pages, each
// for ttl after its last activity.
func NewSessionManager(size int, ttl time.Duration, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	sm := &SessionManager{
		logger: logger.With("component", "session_manager"),
	}
	sm.pages = expirable.NewLRU[string, *Session](size, sm.evicted, ttl)
	return sm
}

// evicted runs under the LRU's lock, so closing happens elsewhere.
func (sm *SessionManager) evicted(id string, s *Session) {
	sm.totalClosed.Add(1)
	sm.logger.Debug("page evicted", "session_id", id, "last_active", s.LastActive())
	go s.Close()
}

// Add registers a session.
func (sm *SessionManager) Add(s *Session) {
	s.keepAlive = func() { sm.pages.Add(s.ID, s) }
	sm.pages.Add(s.ID, s)
	sm.totalCreated.Add(1)
	sm.logger.Info("session registered",
		"session_id", s.ID,
		"active_sessions", sm.pages.Len())
}

// Get returns the session with id, or nil.
func (sm *SessionManager) Get(id string) *Session {
	s, ok := sm.pages.Get(id)
	if !ok || s.IsClosed() {
		return nil
	}
	return s
}

// Close removes and closes the session with id.
func (sm *SessionManager) Close(id string) {
	sm.pages.Remove(id)
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	return sm.pages.Len()
}

// Stats returns the manager counters.
func (sm *SessionManager) Stats() ManagerStats {
	return ManagerStats{
		Active:       sm.pages.Len(),
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
	}
}

// Shutdown closes every session and waits for each to finish.
func (sm *SessionManager) Shutdown() {
	sessions := sm.pages.Values()
	for _, s := range sessions {
		s.Close()
	}
	sm.pages.Purge()
	sm.logger.Info("sessions closed", "count", len(sessions))
}
