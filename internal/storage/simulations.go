package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/chainwatch/internal/common"
	"github.com/Veraticus/chainwatch/internal/model"
)

// SaveSimulationSummary keeps the result of a simulation for later export.
func (s *SQLiteStorage) SaveSimulationSummary(ctx context.Context, summary model.SimulationSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSummary(summary); err != nil {
		return err
	}

	var accuracies sql.NullString
	if len(summary.ModelAccuracies) > 0 {
		data, err := json.Marshal(summary.ModelAccuracies)
		if err != nil {
			return fmt.Errorf("failed to encode model accuracies: %w", err)
		}
		accuracies = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_summaries
			(total_transactions, anomalies_detected, accuracy_score, analysis_timestamp, analysis_time, model_accuracies)
		VALUES (?, ?, ?, ?, ?, ?)
	`, summary.TotalTransactions, summary.AnomaliesDetected, summary.AccuracyScore,
		summary.AnalysisTimestamp, summary.AnalysisTime, accuracies)
	if err != nil {
		return fmt.Errorf("failed to save simulation summary: %w", err)
	}
	return nil
}

// GetLastSimulationSummary returns the most recently saved summary.
func (s *SQLiteStorage) GetLastSimulationSummary(ctx context.Context) (*model.SimulationSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		summary    model.SimulationSummary
		accuracies sql.NullString
		elapsed    sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT total_transactions, anomalies_detected, accuracy_score, analysis_timestamp, analysis_time, model_accuracies
		FROM simulation_summaries
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&summary.TotalTransactions, &summary.AnomaliesDetected, &summary.AccuracyScore,
		&summary.AnalysisTimestamp, &elapsed, &accuracies)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("simulation summary: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation summary: %w", err)
	}

	summary.AnalysisTime = elapsed.Float64
	if accuracies.Valid {
		if err := json.Unmarshal([]byte(accuracies.String), &summary.ModelAccuracies); err != nil {
			return nil, fmt.Errorf("simulation summary: %w: %w", common.ErrDatabaseCorrupted, err)
		}
	}
	return &summary, nil
}
