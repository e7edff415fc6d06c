package alerts

import (
	"context"
	"errors"

	"github.com/Veraticus/chainwatch/internal/model"
)

// Notifier delivers an alert to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alert model.Alert) error
}

// EmailSender asks the analysis server to email the user.
type EmailSender interface {
	SendAnomalyEmail(ctx context.Context, count int, details string) error
}

// EmailNotifier sends alerts through the server's email endpoint.
type EmailNotifier struct {
	sender EmailSender
}

// NewEmailNotifier wraps sender.
func NewEmailNotifier(sender EmailSender) *EmailNotifier {
	return &EmailNotifier{sender: sender}
}

// Notify requests an anomaly email.
func (n *EmailNotifier) Notify(ctx context.Context, alert model.Alert) error {
	return n.sender.SendAnomalyEmail(ctx, alert.Count, alert.Details)
}

// MultiNotifier fans out to several notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier drops nil entries.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// Notify calls every notifier and joins their errors.
func (m *MultiNotifier) Notify(ctx context.Context, alert model.Alert) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
