// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/chainwatch/internal/model"
)

// Storage defines the contract for the local persistence layer.
type Storage interface {
	// Saved form configurations
	SaveFormConfig(ctx context.Context, name string, values map[string]string) error
	GetFormConfig(ctx context.Context, name string) (map[string]string, error)
	DeleteFormConfig(ctx context.Context, name string) error
	ListFormConfigs(ctx context.Context) ([]string, error)

	// Alert log
	AppendAlert(ctx context.Context, alert model.Alert) error
	ListAlerts(ctx context.Context, limit int) ([]model.Alert, error)
	ClearAlerts(ctx context.Context) (int64, error)

	// Last simulation result
	SaveSimulationSummary(ctx context.Context, summary model.SimulationSummary) error
	GetLastSimulationSummary(ctx context.Context) (*model.SimulationSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// AnalysisAPI is the remote anomaly-detection service.
type AnalysisAPI interface {
	// Live analysis
	LiveData(ctx context.Context) (*model.LiveSnapshot, error)
	MarketData(ctx context.Context) (*model.MarketData, error)
	SendAnomalyEmail(ctx context.Context, count int, details string) error

	// Dashboard
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	AnalysisActivity(ctx context.Context) (model.ActivityChart, error)
	MarkAlertRead(ctx context.Context, id string) error
	ClearAnalyses(ctx context.Context) error
	ClearActivityLogs(ctx context.Context) error

	// Testnet
	SimulateTestnet(ctx context.Context, cfg model.SimulationConfig) (*model.SimulationResult, error)
	TestnetHistory(ctx context.Context) (*model.SimulationHistory, error)
	ClearTestnetHistory(ctx context.Context) error

	// Upload
	Upload(ctx context.Context, path string, progress ProgressFunc) (*model.UploadResult, error)
}

// ProgressFunc receives the number of bytes sent so far and the total.
type ProgressFunc func(sent, total int64)

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
