package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSimulation is returned when a SimulationConfig fails validation.
var ErrInvalidSimulation = errors.New("invalid simulation config")

// SimulationConfig is the request body for a testnet simulation.
type SimulationConfig struct {
	TransactionType string `json:"transaction_type" yaml:"transaction_type"`
	PriceRange      string `json:"price_range" yaml:"price_range"`
	VolumeRange     string `json:"volume_range" yaml:"volume_range"`
	NumTransactions int    `json:"num_transactions" yaml:"num_transactions"`
	AnomalyRate     int    `json:"anomaly_rate" yaml:"anomaly_rate"`
}

// Form field names used by the saved configuration blob.
const (
	FieldNumTransactions = "numTransactions"
	FieldTransactionType = "transactionType"
	FieldAnomalyRate     = "anomalyRate"
	FieldPriceRange      = "priceRange"
	FieldVolumeRange     = "volumeRange"
)

// DefaultSimulationConfig returns the form defaults.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		NumTransactions: 50,
		TransactionType: "mixed",
		AnomalyRate:     10,
		PriceRange:      "normal",
		VolumeRange:     "normal",
	}
}

var presets = map[string]SimulationConfig{
	"basic": DefaultSimulationConfig(),
	"stress": {
		NumTransactions: 500,
		TransactionType: "mixed",
		AnomalyRate:     25,
		PriceRange:      "high",
		VolumeRange:     "high",
	},
	"anomaly": {
		NumTransactions: 100,
		TransactionType: "anomaly",
		AnomalyRate:     50,
		PriceRange:      "extreme",
		VolumeRange:     "extreme",
	},
}

// Preset returns a named preset configuration.
func Preset(name string) (SimulationConfig, bool) {
	cfg, ok := presets[strings.ToLower(name)]
	return cfg, ok
}

// PresetNames lists the available preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate checks the configuration before it is sent.
func (c SimulationConfig) Validate() error {
	if c.NumTransactions <= 0 {
		return fmt.Errorf("%w: num_transactions must be positive, got %d", ErrInvalidSimulation, c.NumTransactions)
	}
	if c.AnomalyRate < 0 || c.AnomalyRate > 100 {
		return fmt.Errorf("%w: anomaly_rate must be between 0 and 100, got %d", ErrInvalidSimulation, c.AnomalyRate)
	}
	if strings.TrimSpace(c.TransactionType) == "" {
		return fmt.Errorf("%w: transaction_type is required", ErrInvalidSimulation)
	}
	if strings.TrimSpace(c.PriceRange) == "" || strings.TrimSpace(c.VolumeRange) == "" {
		return fmt.Errorf("%w: price_range and volume_range are required", ErrInvalidSimulation)
	}
	return nil
}

// Form returns the configuration as string-keyed form values.
func (c SimulationConfig) Form() map[string]string {
	return map[string]string{
		FieldNumTransactions: strconv.Itoa(c.NumTransactions),
		FieldTransactionType: c.TransactionType,
		FieldAnomalyRate:     strconv.Itoa(c.AnomalyRate),
		FieldPriceRange:      c.PriceRange,
		FieldVolumeRange:     c.VolumeRange,
	}
}

// ApplyForm copies matching form values onto the configuration.
// Unknown keys are ignored; unparsable numbers are reported.
func (c SimulationConfig) ApplyForm(form map[string]string) (SimulationConfig, error) {
	for key, value := range form {
		switch key {
		case FieldNumTransactions:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return c, fmt.Errorf("%w: %s=%q", ErrInvalidSimulation, key, value)
			}
			c.NumTransactions = n
		case FieldAnomalyRate:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return c, fmt.Errorf("%w: %s=%q", ErrInvalidSimulation, key, value)
			}
			c.AnomalyRate = n
		case FieldTransactionType:
			c.TransactionType = value
		case FieldPriceRange:
			c.PriceRange = value
		case FieldVolumeRange:
			c.VolumeRange = value
		}
	}
	return c, nil
}

// SimulationSummary is the scored result of a simulation run.
type SimulationSummary struct {
	ModelAccuracies   map[string]float64 `json:"model_accuracies,omitempty"`
	AnalysisTimestamp string             `json:"analysis_timestamp"`
	TotalTransactions int                `json:"total_transactions"`
	AnomaliesDetected int                `json:"anomalies_detected"`
	AccuracyScore     float64            `json:"accuracy_score"`
	AnalysisTime      float64            `json:"analysis_time,omitempty"`
}

// NormalCount returns the number of transactions not flagged.
func (s SimulationSummary) NormalCount() int {
	return s.TotalTransactions - s.AnomaliesDetected
}

// AnalyzedAt parses AnalysisTimestamp. It accepts RFC3339 as well as the
// zone-less server layout.
func (s SimulationSummary) AnalyzedAt() (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s.AnalysisTimestamp); err == nil {
		return t, nil
	}
	return time.ParseInLocation(AnalysisTimestampLayout, s.AnalysisTimestamp, time.Local)
}

// AnalysisClock returns the analysis time of day, or the raw timestamp when unparsable.
func (s SimulationSummary) AnalysisClock() string {
	t, err := s.AnalyzedAt()
	if err != nil {
		return s.AnalysisTimestamp
	}
	return t.Format("15:04:05")
}

// SimulationResult is a full simulate response.
type SimulationResult struct {
	Demo    Batch
	Summary SimulationSummary
}

// SimulationRun is one entry of the testnet history.
type SimulationRun struct {
	Duration          *float64 `json:"duration"`
	Timestamp         string   `json:"timestamp"`
	ID                int      `json:"id"`
	TotalTransactions int      `json:"total_transactions"`
	AnomaliesDetected int      `json:"anomalies_detected"`
	AccuracyScore     float64  `json:"accuracy_score"`
}

// DurationLabel renders the duration or "-" when unknown.
func (r SimulationRun) DurationLabel() string {
	if r.Duration == nil {
		return "-"
	}
	return strconv.FormatFloat(*r.Duration, 'f', 2, 64) + "s"
}

// SimulationStats aggregates all testnet runs.
type SimulationStats struct {
	TotalRuns      int     `json:"total_runs"`
	TotalAnomalies int     `json:"total_anomalies"`
	AvgAccuracy    float64 `json:"avg_accuracy"`
}

// SimulationHistory is the testnet history response.
type SimulationHistory struct {
	Runs  []SimulationRun
	Stats SimulationStats
}
