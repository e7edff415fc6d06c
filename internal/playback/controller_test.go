package playback

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSurface struct {
	onRender func(Step)
	steps    []Step
	clears   int
	mu       sync.Mutex
}

func (s *recordingSurface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.steps = nil
}

func (s *recordingSurface) Render(step Step) {
	s.mu.Lock()
	s.steps = append(s.steps, step)
	hook := s.onRender
	s.mu.Unlock()
	if hook != nil {
		hook(step)
	}
}

func (s *recordingSurface) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Step(nil), s.steps...)
}

type recordingSleep struct {
	delays []time.Duration
	mu     sync.Mutex
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, d := range r.delays {
		total += d
	}
	return total
}

func (r *recordingSleep) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delays)
}

func reportCollector() (func(Report), <-chan Report) {
	ch := make(chan Report, 8)
	return func(r Report) { ch <- r }, ch
}

func nextReport(t *testing.T, ch <-chan Report) Report {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("playback never finished")
		return Report{}
	}
}

func stages(steps []Step) []Stage {
	out := make([]Stage, len(steps))
	for i, s := range steps {
		out[i] = s.Stage
	}
	return out
}

func TestController_PlaysWholeBatch(t *testing.T) {
	surface := &recordingSurface{}
	sleeper := &recordingSleep{}
	onDone, reports := reportCollector()

	c := NewController(surface, WithSleep(sleeper.Sleep), OnDone(onDone))
	c.Play(context.Background(), model.Batch{normalTx(), anomalyTx(), normalTx()})

	report := nextReport(t, reports)
	assert.Equal(t, Completed, report.Outcome)
	assert.Equal(t, 3, report.Total)
	// Two normal transactions skip the history stage.
	assert.Equal(t, 3*StageCount-2, report.Rendered)
	assert.Len(t, surface.Steps(), 3*StageCount-2)

	// Every stage after the first waits one step, skipped slots included.
	assert.Equal(t, 3*StageCount-1, sleeper.Count())
	assert.Equal(t, time.Duration(3*StageCount-1)*DefaultStepDelay, sleeper.Total())
}

func TestController_NormalNeverRendersHistory(t *testing.T) {
	surface := &recordingSurface{}
	sleeper := &recordingSleep{}
	onDone, reports := reportCollector()

	c := NewController(surface, WithSleep(sleeper.Sleep), OnDone(onDone))
	c.Play(context.Background(), model.Batch{normalTx()})
	nextReport(t, reports)

	assert.Equal(t, []Stage{
		StageProcessing, StageReceived, StagePaymentInfo, StageBehaviourAnalysis, StageDecision,
	}, stages(surface.Steps()))
	assert.Equal(t, 5*DefaultStepDelay, sleeper.Total())
}

func TestController_AnomalyRendersHistory(t *testing.T) {
	surface := &recordingSurface{}
	onDone, reports := reportCollector()
	sleeper := &recordingSleep{}

	c := NewController(surface, WithSleep(sleeper.Sleep), OnDone(onDone))
	c.Play(context.Background(), model.Batch{anomalyTx()})
	nextReport(t, reports)

	steps := surface.Steps()
	require.Len(t, steps, StageCount)
	history := steps[StageHistoryDisclosure]
	assert.Equal(t, StageHistoryDisclosure, history.Stage)
	assert.Equal(t, "10, 20", history.Prev)
	assert.Equal(t, "30", history.Now.String())
}

func TestController_CancelAfterFirstStage(t *testing.T) {
	surface := &recordingSurface{}
	sleeper := &recordingSleep{}
	onDone, reports := reportCollector()

	c := NewController(surface, WithSleep(sleeper.Sleep), OnDone(onDone))
	surface.onRender = func(Step) { c.Cancel() }

	c.Play(context.Background(), model.Batch{normalTx(), anomalyTx(), normalTx()})
	report := nextReport(t, reports)

	assert.Equal(t, Cancelled, report.Outcome)
	assert.Equal(t, 1, report.Rendered)
	assert.Len(t, surface.Steps(), 1)
	assert.Equal(t, 0, sleeper.Count(), "no further stage is scheduled")
	assert.True(t, c.Cancelled())
}

func TestController_PlayResetsState(t *testing.T) {
	surface := &recordingSurface{}
	sleeper := &recordingSleep{}
	onDone, reports := reportCollector()

	c := NewController(surface, WithSleep(sleeper.Sleep), OnDone(onDone))
	surface.onRender = func(Step) { c.Cancel() }
	c.Play(context.Background(), model.Batch{normalTx()})
	nextReport(t, reports)
	require.True(t, c.Cancelled())

	surface.mu.Lock()
	surface.onRender = nil
	surface.mu.Unlock()

	c.Play(context.Background(), model.Batch{anomalyTx()})
	assert.False(t, c.Cancelled())
	report := nextReport(t, reports)

	assert.Equal(t, Completed, report.Outcome)
	assert.Equal(t, 2, surface.clears)
	steps := surface.Steps()
	require.Len(t, steps, StageCount)
	assert.Equal(t, 0, steps[0].Index)
	assert.Equal(t, "carol", steps[0].Tx.FromAccount)
}

func TestController_NewPlaySupersedesRunningChain(t *testing.T) {
	surface := &recordingSurface{}
	onDone, reports := reportCollector()

	c := NewController(surface, WithStepDelay(time.Hour), OnDone(onDone))

	c.Play(context.Background(), model.Batch{normalTx()})
	require.Eventually(t, func() bool { return len(surface.Steps()) == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, c.Running())

	c.Play(context.Background(), model.Batch{anomalyTx()})
	first := nextReport(t, reports)
	assert.Equal(t, Superseded, first.Outcome)
	assert.Equal(t, 1, first.Rendered)

	require.Eventually(t, func() bool { return len(surface.Steps()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "carol", surface.Steps()[0].Tx.FromAccount)

	c.Cancel()
	second := nextReport(t, reports)
	assert.Equal(t, Cancelled, second.Outcome)

	c.Wait()
	assert.False(t, c.Running())
}

func TestController_InterleavedPlaysTakeDistinctGenerations(t *testing.T) {
	surface := &recordingSurface{}
	sleeper := &recordingSleep{}
	onDone, reports := reportCollector()
	c := NewController(surface, WithSleep(sleeper.Sleep), OnDone(onDone))

	// Both Plays install their chain before either starts running.
	first := c.supersede(context.Background())
	second := c.supersede(context.Background())
	assert.NotEqual(t, first.gen, second.gen)

	c.clear(first)
	assert.Equal(t, 0, surface.clears, "a superseded chain leaves the surface alone")
	c.clear(second)
	assert.Equal(t, 1, surface.clears)

	c.start(first, model.Batch{normalTx()})
	c.start(second, model.Batch{anomalyTx()})

	outcomes := map[Outcome]Report{}
	for range 2 {
		r := nextReport(t, reports)
		outcomes[r.Outcome] = r
	}
	require.Contains(t, outcomes, Superseded)
	require.Contains(t, outcomes, Completed)
	assert.Equal(t, 0, outcomes[Superseded].Rendered)

	for _, step := range surface.Steps() {
		assert.Equal(t, "carol", step.Tx.FromAccount, "only the latest chain renders")
	}
}

func TestController_ConcurrentPlaysLeaveOneChain(t *testing.T) {
	const plays = 20
	surface := &recordingSurface{}
	reports := make(chan Report, plays)
	c := NewController(surface, WithStepDelay(time.Hour), OnDone(func(r Report) { reports <- r }))

	var wg sync.WaitGroup
	for range plays {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Play(context.Background(), model.Batch{normalTx()})
		}()
	}
	wg.Wait()

	for range plays - 1 {
		assert.Equal(t, Superseded, nextReport(t, reports).Outcome)
	}
	assert.True(t, c.Running())

	c.Cancel()
	assert.Equal(t, Cancelled, nextReport(t, reports).Outcome)
	c.Wait()
}

func TestController_ParentContextCancel(t *testing.T) {
	surface := &recordingSurface{}
	onDone, reports := reportCollector()
	ctx, cancel := context.WithCancel(context.Background())

	c := NewController(surface, WithStepDelay(time.Hour), OnDone(onDone))
	c.Play(ctx, model.Batch{normalTx()})
	require.Eventually(t, func() bool { return len(surface.Steps()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.Equal(t, Cancelled, nextReport(t, reports).Outcome)
}

func TestController_EmptyBatch(t *testing.T) {
	surface := &recordingSurface{}
	onDone, reports := reportCollector()

	c := NewController(surface, OnDone(onDone))
	c.Play(context.Background(), nil)

	report := nextReport(t, reports)
	assert.Equal(t, Completed, report.Outcome)
	assert.Zero(t, report.Rendered)
	assert.Equal(t, 1, surface.clears)
}

func TestController_WaitWithoutPlay(t *testing.T) {
	c := NewController(&recordingSurface{})
	assert.NotPanics(t, c.Wait)
	assert.False(t, c.Running())
}

func TestTextSurface(t *testing.T) {
	var buf bytes.Buffer
	sleeper := &recordingSleep{}
	c := NewController(NewTextSurface(&buf, nil), WithSleep(sleeper.Sleep))

	c.Play(context.Background(), model.Batch{anomalyTx()})
	c.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, StageCount)
	assert.Contains(t, lines[0], "carol → dave processing...")
	assert.Contains(t, lines[4], "previous: [10, 20], now: 30 BTC")
	assert.Contains(t, lines[5], "Anomaly Detected")
}
