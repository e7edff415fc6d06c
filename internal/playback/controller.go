package playback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
)

// Surface receives rendered stages.
type Surface interface {
	Clear()
	Render(step Step)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Outcome describes how a playback ended.
type Outcome int

const (
	// Completed means every stage of every transaction was emitted.
	Completed Outcome = iota
	// Cancelled means Cancel stopped the chain.
	Cancelled
	// Superseded means a newer Play replaced the chain.
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Report summarizes a finished playback.
type Report struct {
	Outcome  Outcome
	Rendered int
	Total    int
}

type chain struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	gen    uint64
}

// Controller plays one batch at a time onto a Surface.
type Controller struct {
	surface    Surface
	sleep      SleepFunc
	onDone     func(Report)
	logger     *slog.Logger
	current    *chain
	delay      time.Duration
	generation atomic.Uint64
	mu         sync.Mutex
	renderMu   sync.Mutex
	cancelled  atomic.Bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleep overrides the delay implementation.
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// WithStepDelay overrides DefaultStepDelay.
func WithStepDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.delay = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// OnDone registers a callback run when a chain finishes.
func OnDone(fn func(Report)) Option {
	return func(c *Controller) {
		c.onDone = fn
	}
}

// NewController creates a controller rendering onto surface.
func NewController(surface Surface, opts ...Option) *Controller {
	c := &Controller{
		surface: surface,
		sleep:   Sleep,
		delay:   DefaultStepDelay,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play clears the surface and starts narrating batch from index 0.
// Any chain already running is superseded. Play does not block.
func (c *Controller) Play(ctx context.Context, batch model.Batch) {
	ch := c.supersede(ctx)
	c.clear(ch)
	c.start(ch, batch)
}

// Cancel stops the running chain before its next stage.
func (c *Controller) Cancel() {
	c.cancelled.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.cancel()
	}
}

// Cancelled reports whether Cancel was called since the last Play.
func (c *Controller) Cancelled() bool {
	return c.cancelled.Load()
}

// Running reports whether a chain is in progress.
func (c *Controller) Running() bool {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil {
		return false
	}
	select {
	case <-cur.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the current chain finishes.
func (c *Controller) Wait() {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur != nil {
		<-cur.done
	}
}

// supersede cancels the running chain and installs a new one. The new
// generation and the current chain change together under mu, so two
// concurrent Plays never share a generation.
func (c *Controller) supersede(ctx context.Context) *chain {
	chainCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		c.current.cancel()
	}
	ch := &chain{
		ctx:    chainCtx,
		cancel: cancel,
		done:   make(chan struct{}),
		gen:    c.generation.Add(1),
	}
	c.current = ch
	return ch
}

// clear resets the cancel flag and the surface, unless a newer Play has
// already taken over.
func (c *Controller) clear(ch *chain) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	if c.generation.Load() != ch.gen {
		return
	}
	c.cancelled.Store(false)
	c.surface.Clear()
}

func (c *Controller) start(ch *chain, batch model.Batch) {
	go func() {
		defer close(ch.done)
		defer ch.cancel()
		report := c.run(ch, batch)
		c.logger.Debug("Playback finished",
			"outcome", report.Outcome.String(),
			"rendered", report.Rendered,
			"transactions", report.Total)
		if c.onDone != nil {
			c.onDone(report)
		}
	}()
}

func (c *Controller) stopped(ch *chain) (Outcome, bool) {
	if c.generation.Load() != ch.gen {
		return Superseded, true
	}
	if c.cancelled.Load() {
		return Cancelled, true
	}
	return Completed, false
}

// run is the single driving loop: wait, check, render.
func (c *Controller) run(ch *chain, batch model.Batch) Report {
	report := Report{Total: len(batch)}
	m := NewMachine(batch, c.delay)

	for {
		if outcome, stop := c.stopped(ch); stop {
			report.Outcome = outcome
			return report
		}

		step, ok := m.Next()
		if !ok {
			report.Outcome = Completed
			return report
		}

		if step.Delay > 0 {
			if err := c.sleep(ch.ctx, step.Delay); err != nil {
				report.Outcome, _ = c.stopped(ch)
				if report.Outcome == Completed {
					// Parent context ended without Cancel.
					report.Outcome = Cancelled
				}
				return report
			}
		}

		if outcome, stop := c.render(ch, step); stop {
			report.Outcome = outcome
			return report
		}
		if step.Rendered {
			report.Rendered++
		}
	}
}

func (c *Controller) render(ch *chain, step Step) (Outcome, bool) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	if outcome, stop := c.stopped(ch); stop {
		return outcome, true
	}
	if step.Rendered {
		c.surface.Render(step)
	}
	return Completed, false
}
