package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AnalysisTimestampLayout is the layout the API uses for analysis_timestamp.
const AnalysisTimestampLayout = "2006-01-02T15:04:05"

// FormatAccuracy renders a 0..1 score as a percentage with one decimal, e.g. "90.0%".
func FormatAccuracy(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// LiveAnalysis is the result of one live-data analysis tick.
type LiveAnalysis struct {
	AnomalyIndices    []int   `json:"anomaly_indices"`
	TotalTransactions int     `json:"total_transactions"`
	AnomaliesDetected int     `json:"anomalies_detected"`
	AccuracyScore     float64 `json:"accuracy_score"`
}

// IsAnomalyIndex reports whether the transaction at index i was flagged.
func (a LiveAnalysis) IsAnomalyIndex(i int) bool {
	for _, idx := range a.AnomalyIndices {
		if idx == i {
			return true
		}
	}
	return false
}

// LiveSnapshot bundles a live-data response.
type LiveSnapshot struct {
	Trades     Batch
	Analysis   LiveAnalysis
	AnalysisID int
}

// Ticker is the 24h market ticker.
type Ticker struct {
	LastPrice          decimal.Decimal `json:"lastPrice"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
}

// Kline is one candle from the price chart. The wire form is an array
// [openTime, open, high, low, close, ...].
type Kline struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
}

// UnmarshalJSON decodes the array form of a kline row.
func (k *Kline) UnmarshalJSON(data []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return fmt.Errorf("kline row: %w", err)
	}
	if len(row) < 5 {
		return fmt.Errorf("kline row: expected at least 5 fields, got %d", len(row))
	}

	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return fmt.Errorf("kline open time: %w", err)
	}
	k.OpenTime = time.UnixMilli(openMs)

	fields := []*decimal.Decimal{&k.Open, &k.High, &k.Low, &k.Close}
	for i, dst := range fields {
		if err := dst.UnmarshalJSON(row[i+1]); err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
	}
	return nil
}

// MarketData is the ticker plus recent candles.
type MarketData struct {
	Ticker     *Ticker `json:"ticker"`
	PriceChart []Kline `json:"price_chart"`
}

// Activity is one entry in the dashboard's recent activity feed.
type Activity struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details"`
}

// DashboardStats summarizes the user's analysis history.
type DashboardStats struct {
	RecentActivities []Activity `json:"recent_activities"`
	TotalAnalyses    int        `json:"total_analyses"`
	TotalAnomalies   int        `json:"total_anomalies"`
}

// ActivityPoint is a per-day count of analyses and anomalies.
type ActivityPoint struct {
	Analyses  int `json:"analyses"`
	Anomalies int `json:"anomalies"`
}

// ActivityChart maps a date to its activity counts.
type ActivityChart map[string]ActivityPoint

// Dates returns the chart's dates in ascending order.
func (c ActivityChart) Dates() []string {
	dates := make([]string, 0, len(c))
	for d := range c {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
