package toast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

type fakeScheduler struct {
	timers []*timer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	t := &timer{d: d, fn: fn}
	s.timers = append(s.timers, t)
	return func() bool {
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (s *fakeScheduler) live() []*timer {
	var out []*timer
	for _, t := range s.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

func TestErrorDismissesAfterTimeout(t *testing.T) {
	s := &fakeScheduler{}
	b := NewBoard(s)
	changes := 0
	b.OnChange = func() { changes++ }

	b.Error("bad type")

	msg, ok := b.Message(TypeError)
	assert.True(t, ok)
	assert.Equal(t, "bad type", msg)
	assert.Equal(t, ErrorTimeout, s.timers[0].d)

	s.timers[0].fn()

	_, ok = b.Message(TypeError)
	assert.False(t, ok)
	assert.Equal(t, 1, changes)
}

func TestSuccessUsesShorterTimeout(t *testing.T) {
	s := &fakeScheduler{}
	b := NewBoard(s)

	b.Success("deleted")

	assert.Equal(t, SuccessTimeout, s.timers[0].d)
	_, ok := b.Message(TypeError)
	assert.False(t, ok)
}

func TestNewNoticeReplacesAndReschedules(t *testing.T) {
	s := &fakeScheduler{}
	b := NewBoard(s)

	b.Error("first")
	b.Error("second")

	msg, _ := b.Message(TypeError)
	assert.Equal(t, "second", msg)
	assert.True(t, s.timers[0].stopped)
	assert.Len(t, s.live(), 1)

	// stale timer firing anyway must not dismiss the new notice
	s.timers[0].fn()
	msg, ok := b.Message(TypeError)
	assert.True(t, ok)
	assert.Equal(t, "second", msg)
}

func TestSlotsAreIndependent(t *testing.T) {
	s := &fakeScheduler{}
	b := NewBoard(s)

	b.Error("e")
	b.Success("s")
	s.timers[1].fn()

	_, okErr := b.Message(TypeError)
	_, okOK := b.Message(TypeSuccess)
	assert.True(t, okErr)
	assert.False(t, okOK)
}

func TestCloseStopsTimers(t *testing.T) {
	s := &fakeScheduler{}
	b := NewBoard(s)
	b.Error("e")
	b.Success("s")

	b.Close()

	assert.Empty(t, s.live())
	_, ok := b.Message(TypeError)
	assert.False(t, ok)
}

func TestUnknownType(t *testing.T) {
	b := NewBoard(nil)
	b.Show(Type("info"), "x")
	_, ok := b.Message(Type("info"))
	assert.False(t, ok)
}
