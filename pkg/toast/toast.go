package toast

import "time"

// Type represents the notice type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
)

// Default dismissal delays.
const (
	ErrorTimeout   = 3000 * time.Millisecond
	SuccessTimeout = 1000 * time.Millisecond
)

// Scheduler runs fn after d on the owner's event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type slot struct {
	message string
	gen     uint64
	stop    func() bool
}

// Board holds the visible notices of one widget.
type Board struct {
	sched   Scheduler
	timeout map[Type]time.Duration
	slots   map[Type]*slot
	gen     uint64

	// OnChange, if set, runs after a notice is dismissed by its timer.
	OnChange func()
}

// NewBoard returns an empty board using the default delays.
func NewBoard(sched Scheduler) *Board {
	return &Board{
		sched: sched,
		timeout: map[Type]time.Duration{
			TypeError:   ErrorTimeout,
			TypeSuccess: SuccessTimeout,
		},
		slots: map[Type]*slot{
			TypeError:   {},
			TypeSuccess: {},
		},
	}
}

// Show places message in the slot for level, replacing the previous notice
// and restarting its dismissal timer.
func (b *Board) Show(level Type, message string) {
	s, ok := b.slots[level]
	if !ok {
		return
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	b.gen++
	s.message = message
	s.gen = b.gen
	if b.sched == nil {
		return
	}
	gen := s.gen
	s.stop = b.sched.AfterFunc(b.timeout[level], func() {
		// a replaced notice's timer may still fire if stop lost the race
		if s.gen != gen {
			return
		}
		s.message = ""
		s.stop = nil
		if b.OnChange != nil {
			b.OnChange()
		}
	})
}

// Error shows an error notice.
func (b *Board) Error(message string) { b.Show(TypeError, message) }

// Success shows a success notice.
func (b *Board) Success(message string) { b.Show(TypeSuccess, message) }

// Message returns the visible notice for level, if any.
func (b *Board) Message(level Type) (string, bool) {
	s, ok := b.slots[level]
	if !ok || s.message == "" {
		return "", false
	}
	return s.message, true
}

// Clear hides the notice for level immediately.
func (b *Board) Clear(level Type) {
	s, ok := b.slots[level]
	if !ok {
		return
	}
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
	s.message = ""
	b.gen++
	s.gen = b.gen
}

// Close cancels all dismissal timers and hides every notice.
func (b *Board) Close() {
	b.Clear(TypeError)
	b.Clear(TypeSuccess)
}
