package poll

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Result is the outcome of one fetch.
type Result[T any] struct {
	Value   T
	Err     error
	Seq     uint64
	Latency time.Duration
	// Stale is set when a newer request had already been delivered.
	Stale bool
}

// FetchFunc performs one network round-trip.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Fetcher turns scheduler ticks into concurrent fetches. Ticks are not
// serialized: a slow request may still be in flight when the next one starts.
// Results are delivered one at a time in completion order.
type Fetcher[T any] struct {
	ctx       context.Context
	fetch     FetchFunc[T]
	deliver   func(Result[T])
	clock     Clock
	logger    *slog.Logger
	seq       atomic.Uint64
	delivered uint64
	wg        sync.WaitGroup
	mu        sync.Mutex
}

// NewFetcher creates a fetcher bound to ctx. Requests in flight when ctx is
// cancelled are dropped without delivery.
func NewFetcher[T any](ctx context.Context, name string, fetch FetchFunc[T], deliver func(Result[T]), opts ...Option) *Fetcher[T] {
	o := buildOptions(opts)
	return &Fetcher[T]{
		ctx:     ctx,
		fetch:   fetch,
		deliver: deliver,
		clock:   o.clock,
		logger:  o.logger.With("fetcher", name),
	}
}

// Tick launches one fetch on its own goroutine.
func (f *Fetcher[T]) Tick() {
	seq := f.seq.Add(1)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run(seq)
	}()
}

// Wait blocks until every launched fetch has finished.
func (f *Fetcher[T]) Wait() {
	f.wg.Wait()
}

func (f *Fetcher[T]) run(seq uint64) {
	start := f.clock.Now()
	value, err := f.fetch(f.ctx)
	latency := f.clock.Now().Sub(start)

	if f.ctx.Err() != nil {
		f.logger.Debug("Dropping response after shutdown", "seq", seq)
		return
	}

	if err != nil {
		f.logger.Warn("Fetch failed", "seq", seq, "error", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	res := Result[T]{Value: value, Err: err, Seq: seq, Latency: latency}
	if seq < f.delivered {
		res.Stale = true
		f.logger.Debug("Applying out-of-order response",
			"seq", seq,
			"latest_delivered", f.delivered)
	} else {
		f.delivered = seq
	}
	f.deliver(res)
}
