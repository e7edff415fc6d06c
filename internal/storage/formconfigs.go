package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/chainwatch/internal/common"
)

// DefaultFormConfig is the name the simulation form saves under.
const DefaultFormConfig = "testnetConfig"

// SaveFormConfig stores values under name, replacing any previous blob.
func (s *SQLiteStorage) SaveFormConfig(ctx context.Context, name string, values map[string]string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	if err := validateForm(values); err != nil {
		return err
	}

	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode form config: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_configs (name, payload)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`, name, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save form config %q: %w", name, err)
	}
	return nil
}

// GetFormConfig returns the blob stored under name verbatim.
func (s *SQLiteStorage) GetFormConfig(ctx context.Context, name string) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM form_configs WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("form config %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load form config %q: %w", name, err)
	}

	values := make(map[string]string)
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return nil, fmt.Errorf("form config %q: %w: %w", name, common.ErrDatabaseCorrupted, err)
	}
	return values, nil
}

// DeleteFormConfig removes the blob stored under name.
func (s *SQLiteStorage) DeleteFormConfig(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM form_configs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete form config %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("form config %q: %w", name, common.ErrNotFound)
	}
	return nil
}

// ListFormConfigs returns the saved names in alphabetical order.
func (s *SQLiteStorage) ListFormConfigs(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM form_configs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list form configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan form config: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
