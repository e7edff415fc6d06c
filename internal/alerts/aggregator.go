// Package alerts keeps the list of anomaly alerts raised by live analysis
// and dispatches optional notifications for them.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/google/uuid"
)

// DefaultDetails is attached to alerts raised by live analysis.
const DefaultDetails = "Live BTC analysis anomaly alert."

// Recorder persists raised alerts.
type Recorder interface {
	AppendAlert(ctx context.Context, alert model.Alert) error
}

// Aggregator holds alerts newest first.
type Aggregator struct {
	notifier  Notifier
	relay     *MultiNotifier
	recorder  Recorder
	onWarning func(error)
	now       func() time.Time
	suffix    func() string
	logger    *slog.Logger
	alerts    []model.Alert
	wg        sync.WaitGroup
	mu        sync.Mutex
	notify    bool
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithNotifier sets the notifier used when notifications are enabled.
func WithNotifier(n Notifier) Option {
	return func(a *Aggregator) {
		a.notifier = n
	}
}

// WithRelay adds notifiers that receive every alert whatever the
// notification preference. Nil entries are dropped.
func WithRelay(notifiers ...Notifier) Option {
	return func(a *Aggregator) {
		if a.relay != nil {
			notifiers = append(append([]Notifier(nil), a.relay.notifiers...), notifiers...)
		}
		a.relay = NewMultiNotifier(notifiers...)
	}
}

// WithNotifications sets the initial notification preference.
func WithNotifications(enabled bool) Option {
	return func(a *Aggregator) {
		a.notify = enabled
	}
}

// WithRecorder persists every raised alert.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) {
		a.recorder = r
	}
}

// OnWarning registers a callback for notification failures.
func OnWarning(fn func(error)) Option {
	return func(a *Aggregator) {
		a.onWarning = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an empty aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		now:    time.Now,
		suffix: randomSuffix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

// Add records an alert for count anomalies at the head of the list and
// returns it. Notification and persistence run in the background and never
// affect the list.
func (a *Aggregator) Add(ctx context.Context, count int) model.Alert {
	now := a.now()
	alert := model.Alert{
		ID:        fmt.Sprintf("alert-%d-%s", now.UnixMilli(), a.suffix()),
		Count:     count,
		Details:   DefaultDetails,
		CreatedAt: now,
	}

	a.mu.Lock()
	a.alerts = append([]model.Alert{alert}, a.alerts...)
	notify := a.notify && a.notifier != nil
	a.mu.Unlock()

	a.logger.Info("Anomaly alert raised", "id", alert.ID, "count", count)

	if notify || a.relaying() || a.recorder != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.dispatch(ctx, alert, notify)
		}()
	}

	return alert
}

func (a *Aggregator) dispatch(ctx context.Context, alert model.Alert, notify bool) {
	if a.recorder != nil {
		if err := a.recorder.AppendAlert(ctx, alert); err != nil {
			a.logger.Warn("Failed to record alert", "id", alert.ID, "error", err)
		}
	}
	if notify {
		a.deliver(ctx, alert, a.notifier)
	}
	if a.relaying() {
		a.deliver(ctx, alert, a.relay)
	}
}

func (a *Aggregator) relaying() bool {
	return a.relay != nil && a.relay.Count() > 0
}

func (a *Aggregator) deliver(ctx context.Context, alert model.Alert, n Notifier) {
	if err := n.Notify(ctx, alert); err != nil {
		a.logger.Warn("Alert notification failed", "id", alert.ID, "error", err)
		if a.onWarning != nil {
			a.onWarning(fmt.Errorf("failed to send notification for %s: %w", alert.ID, err))
		}
	}
}

// Remove dismisses the alert with id. It reports whether an alert was removed.
func (a *Aggregator) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, alert := range a.alerts {
		if alert.ID == id {
			a.alerts = append(a.alerts[:i:i], a.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether no alerts remain.
func (a *Aggregator) IsEmpty() bool {
	return a.Len() == 0
}

// Len returns the number of alerts.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

// List returns a copy of the alerts, newest first.
func (a *Aggregator) List() []model.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.Alert(nil), a.alerts...)
}

// SetNotifications toggles the notification preference. Relays are not
// affected.
func (a *Aggregator) SetNotifications(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notify = enabled
}

// Notifications reports the notification preference.
func (a *Aggregator) Notifications() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notify
}

// Wait blocks until background dispatches finish.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}
