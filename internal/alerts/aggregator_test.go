package alerts

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	err    error
	alerts []model.Alert
	mu     sync.Mutex
}

func (f *fakeNotifier) Notify(_ context.Context, alert model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return f.err
}

func (f *fakeNotifier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fakeRecorder struct {
	alerts []model.Alert
	mu     sync.Mutex
}

func (f *fakeRecorder) AppendAlert(_ context.Context, alert model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func ids(alerts []model.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestAggregator_NewestFirst(t *testing.T) {
	agg := NewAggregator()
	ctx := context.Background()
	assert.True(t, agg.IsEmpty())

	a1 := agg.Add(ctx, 1)
	a2 := agg.Add(ctx, 2)
	a3 := agg.Add(ctx, 3)

	assert.Equal(t, []string{a3.ID, a2.ID, a1.ID}, ids(agg.List()))
	assert.False(t, agg.IsEmpty())
	assert.Equal(t, 3, agg.Len())
}

func TestAggregator_RemoveMiddle(t *testing.T) {
	agg := NewAggregator()
	ctx := context.Background()

	a1 := agg.Add(ctx, 1)
	a2 := agg.Add(ctx, 2)
	a3 := agg.Add(ctx, 3)

	require.True(t, agg.Remove(a2.ID))
	assert.Equal(t, []string{a3.ID, a1.ID}, ids(agg.List()))
	assert.False(t, agg.IsEmpty())

	assert.False(t, agg.Remove(a2.ID), "already dismissed")
	assert.Equal(t, 2, agg.Len())

	require.True(t, agg.Remove(a1.ID))
	require.True(t, agg.Remove(a3.ID))
	assert.True(t, agg.IsEmpty())
}

func TestAggregator_IDsUniqueWithinSameMillisecond(t *testing.T) {
	agg := NewAggregator(WithClock(fixedClock()))
	ctx := context.Background()
	pattern := regexp.MustCompile(`^alert-1718020800000-[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		a := agg.Add(ctx, 1)
		assert.Regexp(t, pattern, a.ID)
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestAggregator_ListIsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Add(context.Background(), 4)

	list := agg.List()
	list[0].Count = 99
	assert.Equal(t, 4, agg.List()[0].Count)
}

func TestAggregator_NotificationGatedByPreference(t *testing.T) {
	notifier := &fakeNotifier{}
	agg := NewAggregator(WithNotifier(notifier))
	ctx := context.Background()

	agg.Add(ctx, 1)
	agg.Wait()
	assert.Equal(t, 0, notifier.Count())

	agg.SetNotifications(true)
	assert.True(t, agg.Notifications())
	alert := agg.Add(ctx, 5)
	agg.Wait()
	require.Equal(t, 1, notifier.Count())
	assert.Equal(t, alert.ID, notifier.alerts[0].ID)
	assert.Equal(t, DefaultDetails, notifier.alerts[0].Details)
}

func TestAggregator_NotificationFailureIsIsolated(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	var warnings []error
	var mu sync.Mutex

	agg := NewAggregator(
		WithNotifier(notifier),
		WithNotifications(true),
		OnWarning(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			warnings = append(warnings, err)
		}),
	)

	alert := agg.Add(context.Background(), 2)
	agg.Wait()

	mu.Lock()
	require.Len(t, warnings, 1)
	assert.ErrorContains(t, warnings[0], "smtp down")
	mu.Unlock()

	assert.Equal(t, []string{alert.ID}, ids(agg.List()))
}

func TestAggregator_RelayIgnoresEmailPreference(t *testing.T) {
	email := &fakeNotifier{}
	discord := &fakeNotifier{}
	agg := NewAggregator(
		WithNotifier(email),
		WithNotifications(false),
		WithRelay(discord, nil),
	)
	ctx := context.Background()

	first := agg.Add(ctx, 1)
	agg.Wait()
	assert.Equal(t, 0, email.Count(), "email follows the preference")
	require.Equal(t, 1, discord.Count(), "the relay fires regardless")
	assert.Equal(t, first.ID, discord.alerts[0].ID)

	agg.SetNotifications(true)
	agg.Add(ctx, 2)
	agg.Wait()
	assert.Equal(t, 1, email.Count())
	assert.Equal(t, 2, discord.Count())

	agg.SetNotifications(false)
	agg.Add(ctx, 3)
	agg.Wait()
	assert.Equal(t, 1, email.Count())
	assert.Equal(t, 3, discord.Count())
}

func TestAggregator_RelayFailureWarns(t *testing.T) {
	var warnings []error
	var mu sync.Mutex
	agg := NewAggregator(
		WithRelay(&fakeNotifier{err: errors.New("discord down")}),
		OnWarning(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			warnings = append(warnings, err)
		}),
	)

	agg.Add(context.Background(), 1)
	agg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, warnings, 1)
	assert.ErrorContains(t, warnings[0], "discord down")
}

func TestAggregator_RecordsAlerts(t *testing.T) {
	recorder := &fakeRecorder{}
	agg := NewAggregator(WithRecorder(recorder))

	alert := agg.Add(context.Background(), 3)
	agg.Wait()

	require.Len(t, recorder.alerts, 1)
	assert.Equal(t, alert, recorder.alerts[0])
}
