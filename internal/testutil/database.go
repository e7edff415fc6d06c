// Package testutil provides shared fixtures for chainwatch tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
	"github.com/Veraticus/chainwatch/internal/service"
	"github.com/Veraticus/chainwatch/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	FormConfigs    map[string]map[string]string
	Alerts         []model.Alert
	SkipMigrations bool
}

// SetupTestDB creates a new migrated in-memory test database.
// It automatically handles cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	for name, values := range opts.FormConfigs {
		if err := store.SaveFormConfig(ctx, name, values); err != nil {
			t.Fatalf("failed to seed form config %q: %v", name, err)
		}
	}

	for _, alert := range opts.Alerts {
		if err := store.AppendAlert(ctx, alert); err != nil {
			t.Fatalf("failed to seed alert %q: %v", alert.ID, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustListAlerts returns every logged alert or fails the test.
func (db *TestDB) MustListAlerts() []model.Alert {
	db.t.Helper()
	alerts, err := db.Storage.ListAlerts(context.Background(), 0)
	if err != nil {
		db.t.Fatalf("failed to list alerts: %v", err)
	}
	return alerts
}

// Alerts builds n alerts a minute apart starting at base.
func Alerts(base time.Time, n int) []model.Alert {
	alerts := make([]model.Alert, n)
	for i := range alerts {
		alerts[i] = model.Alert{
			ID:        fmt.Sprintf("alert-%d-test%04d", base.UnixMilli(), i),
			Count:     i + 1,
			Details:   "Live BTC analysis anomaly alert.",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return alerts
}
