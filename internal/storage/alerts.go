package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
)

// AppendAlert records a raised alert.
func (s *SQLiteStorage) AppendAlert(ctx context.Context, alert model.Alert) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAlert(alert); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_log (id, anomaly_count, details, created_at)
		VALUES (?, ?, ?, ?)
	`, alert.ID, alert.Count, alert.Details, alert.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to append alert %s: %w", alert.ID, err)
	}
	return nil
}

// ListAlerts returns up to limit alerts, newest first. A zero limit returns all.
func (s *SQLiteStorage) ListAlerts(ctx context.Context, limit int) ([]model.Alert, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	query := `SELECT id, anomaly_count, details, created_at FROM alert_log ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		var (
			alert     model.Alert
			createdAt time.Time
		)
		if err := rows.Scan(&alert.ID, &alert.Count, &alert.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alert.CreatedAt = createdAt.Local()
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// ClearAlerts deletes the alert log and reports how many rows were removed.
func (s *SQLiteStorage) ClearAlerts(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_log`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared alerts: %w", err)
	}
	return n, nil
}
