// Package poll runs recurring actions on fixed intervals.
//
// A Scheduler owns exactly one timer while running. Start fires the action
// once immediately and then every interval; Stop disarms it. Both are
// idempotent. Timer callbacks left over from a previous run are ignored by
// comparing run generations, so a Stop followed by a quick Start never
// produces duplicate ticks.
package poll

import (
	"log/slog"
	"sync"
	"time"
)

// Default poll intervals.
const (
	AnalysisInterval   = 10 * time.Second
	MarketDataInterval = 30 * time.Second
	StatsInterval      = 30 * time.Second
	ActivityInterval   = 10 * time.Second
	LivenessInterval   = 5 * time.Second
)

type options struct {
	clock  Clock
	logger *slog.Logger
}

// Option configures a Scheduler or Fetcher.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: SystemClock, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Scheduler invokes an action on a fixed interval.
type Scheduler struct {
	timer      Timer
	clock      Clock
	action     func()
	logger     *slog.Logger
	name       string
	interval   time.Duration
	generation uint64
	mu         sync.Mutex
	running    bool
}

// New creates a stopped scheduler. action must not block; long work belongs
// on its own goroutine (see Fetcher).
func New(name string, interval time.Duration, action func(), opts ...Option) *Scheduler {
	o := buildOptions(opts)
	return &Scheduler{
		name:     name,
		interval: interval,
		action:   action,
		clock:    o.clock,
		logger:   o.logger.With("poller", name),
	}
}

// Name returns the scheduler's name.
func (s *Scheduler) Name() string {
	return s.name
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start arms the timer and fires the action once immediately.
// It returns false if the scheduler was already running.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.interval, func() { s.tick(gen) })
	s.mu.Unlock()

	s.logger.Debug("Poller started", "interval", s.interval)
	s.action()
	return true
}

// Stop disarms the timer. It returns false if the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	s.running = false
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	s.logger.Debug("Poller stopped")
	return true
}

// IsRunning reports whether the timer is armed.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if !s.running || s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.timer = s.clock.AfterFunc(s.interval, func() { s.tick(gen) })
	s.mu.Unlock()

	s.action()
}

// Group starts and stops a set of schedulers together.
type Group []*Scheduler

// StartAll starts every scheduler in the group.
func (g Group) StartAll() {
	for _, s := range g {
		s.Start()
	}
}

// StopAll stops every scheduler in the group.
func (g Group) StopAll() {
	for _, s := range g {
		s.Stop()
	}
}
