package poll

import (
	"sync"
	"time"
)

type fakeTimer struct {
	at      time.Time
	f       func()
	clock   *fakeClock
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.leakyStop {
		return false
	}
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

// fakeClock fires timers synchronously from Advance.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
	mu     sync.Mutex
	// leakyStop makes Stop a no-op, emulating a timer that already fired
	// and is waiting on the scheduler lock.
	leakyStop bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f, clock: c}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
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

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}
