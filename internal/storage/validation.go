// Package storage provides the local persistence layer for chainwatch.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/chainwatch/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrInvalidAlert  = errors.New("invalid alert")
	ErrInvalidLimit  = errors.New("limit must not be negative")
	ErrInvalidRecord = errors.New("invalid simulation summary")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateForm(values map[string]string) error {
	if values == nil {
		return fmt.Errorf("%w: values", ErrNilParameter)
	}
	return nil
}

func validateAlert(alert model.Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAlert)
	}
	if alert.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidAlert, alert.Count)
	}
	if alert.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidAlert)
	}
	return nil
}

func validateSummary(summary model.SimulationSummary) error {
	if summary.TotalTransactions < 0 || summary.AnomaliesDetected < 0 {
		return fmt.Errorf("%w: negative counts", ErrInvalidRecord)
	}
	if summary.AnomaliesDetected > summary.TotalTransactions {
		return fmt.Errorf("%w: %d anomalies out of %d transactions",
			ErrInvalidRecord, summary.AnomaliesDetected, summary.TotalTransactions)
	}
	return nil
}
