package testing

import (
	"sync"
	"time"

	"github.com/Veraticus/chainwatch/internal/poll"
)

type manualTimer struct {
	at      time.Time
	f       func()
	clock   *ManualClock
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

// ManualClock is a poll.Clock whose timers fire only from Advance.
type ManualClock struct {
	now    time.Time
	timers []*manualTimer
	mu     sync.Mutex
}

var _ poll.Clock = (*ManualClock)(nil)

// NewManualClock creates a clock stopped at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// AfterFunc schedules f to run when the clock passes d from now.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) poll.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

// Now returns the current controlled time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward, firing due timers in order on the
// calling goroutine.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}
