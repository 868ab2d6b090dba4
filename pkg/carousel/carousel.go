// Package carousel tracks the scroll state of the multi-file preview strip.
//
// The strip is a row of fixed-width items: one "add more" button followed by
// one item per tracked file. State is the translate offset (zero or
// negative, in px) and an animation lock that blocks a new transition until
// the previous one has finished.
package carousel

import (
	"fmt"
	"time"
)

const (
	// ItemWidth is the width of one strip item including its margin.
	ItemWidth = 108

	// Gutter is subtracted from the widget width to get the visible width.
	Gutter = 20

	// Transition is how long the animation lock is held.
	Transition = 350 * time.Millisecond

	// DefaultVisible is the visible window used before the client has
	// reported its width.
	DefaultVisible = 3
)

// Scheduler runs fn after d on the owner's event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Carousel is the scroll state of one strip. It is not safe for concurrent
// use; callers run it on their event loop, which must also be where the
// Scheduler delivers callbacks.
type Carousel struct {
	sched     Scheduler
	offset    int
	animating bool
	stop      func() bool

	// OnSettle, if set, runs when the animation lock clears.
	OnSettle func()
}

// New returns a carousel at offset zero.
func New(sched Scheduler) *Carousel {
	return &Carousel{sched: sched}
}

// Offset returns the current translate offset in px (zero or negative).
func (c *Carousel) Offset() int { return c.offset }

// Animating reports whether a transition is in progress.
func (c *Carousel) Animating() bool { return c.animating }

// Index returns the number of items scrolled past.
func (c *Carousel) Index() int { return -c.offset / ItemWidth }

// MaxScroll returns the largest scroll distance for items strip items in a
// widget clientWidth px wide.
func MaxScroll(items, clientWidth int) int {
	return max(0, items*ItemWidth-(clientWidth-Gutter))
}

// Navigate moves the strip by one item. dir < 0 moves back, dir > 0 moves
// forward. It is a no-op while a transition is in progress. It reports
// whether the offset changed.
func (c *Carousel) Navigate(dir, items, clientWidth int) bool {
	if c.animating || dir == 0 {
		return false
	}

	next := c.offset
	if dir < 0 {
		next = min(0, c.offset+ItemWidth)
	} else {
		next = max(-MaxScroll(items, clientWidth), c.offset-ItemWidth)
	}
	if next == c.offset {
		return false
	}

	c.offset = next
	c.animating = true
	if c.sched != nil {
		c.stop = c.sched.AfterFunc(Transition, c.settle)
	} else {
		c.animating = false
	}
	return true
}

func (c *Carousel) settle() {
	c.animating = false
	c.stop = nil
	if c.OnSettle != nil {
		c.OnSettle()
	}
}

// Clamp pulls the offset back into range after items were removed or the
// widget was resized.
func (c *Carousel) Clamp(items, clientWidth int) {
	if clientWidth <= 0 {
		return
	}
	c.offset = max(-MaxScroll(items, clientWidth), min(0, c.offset))
}

// Reset returns to offset zero and drops any pending unlock.
func (c *Carousel) Reset() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	c.offset = 0
	c.animating = false
}

// Visible returns how many items fit in a widget clientWidth px wide.
func Visible(clientWidth int) int {
	if clientWidth <= 0 {
		return DefaultVisible
	}
	return max(1, (clientWidth-Gutter)/ItemWidth)
}

// Partial reports whether the item at position i lies outside the visible
// window and should be dimmed.
func (c *Carousel) Partial(i, clientWidth int) bool {
	first := c.Index()
	return i < first || i >= first+Visible(clientWidth)
}

// Style returns the inline style for the strip.
func (c *Carousel) Style() string {
	if c.animating {
		return fmt.Sprintf("transition: transform 0.3s ease; transform: translateX(%dpx);", c.offset)
	}
	return fmt.Sprintf("transform: translateX(%dpx);", c.offset)
}
