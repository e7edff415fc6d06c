// Package model defines the core domain models exchanged with the analysis API.
package model

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Flag is a boolean that the API may encode as true/false or 0/1.
type Flag bool

// UnmarshalJSON accepts JSON booleans, numbers and null.
func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", `"1"`, `"true"`:
		*f = true
	case "false", "0", `"0"`, `"false"`, "null", `""`:
		*f = false
	default:
		return fmt.Errorf("invalid flag value %s", data)
	}
	return nil
}

// MarshalJSON encodes the flag as a JSON boolean.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

// Transaction is one trade or simulated transfer returned by the API.
// Identity is positional within its Batch.
type Transaction struct {
	FromAccount   string            `json:"from_account,omitempty"`
	ToAccount     string            `json:"to_account,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	ModelDecision string            `json:"model_decision,omitempty"`
	History       []decimal.Decimal `json:"history,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	Price         decimal.Decimal   `json:"price"`
	Qty           decimal.Decimal   `json:"qty"`
	Time          int64             `json:"time,omitempty"` // unix milliseconds
	IsBestMatch   bool              `json:"isBestMatch,omitempty"`
	IsAnomaly     Flag              `json:"is_anomaly"`
}

// Batch is a server-returned set of transactions. Each poll replaces the previous batch.
type Batch []Transaction

// Notional returns price * qty.
func (t Transaction) Notional() decimal.Decimal {
	return t.Price.Mul(t.Qty)
}

// Timestamp converts the millisecond epoch to a time.Time.
func (t Transaction) Timestamp() time.Time {
	return time.UnixMilli(t.Time)
}

// HasHistoryDisclosure reports whether the transaction carries enough history
// to show previous amounts next to the latest one.
func (t Transaction) HasHistoryDisclosure() bool {
	return bool(t.IsAnomaly) && len(t.History) > 1
}

// HistorySplit returns all-but-last history values joined with ", " and the last value.
func (t Transaction) HistorySplit() (previous string, now decimal.Decimal) {
	if len(t.History) == 0 {
		return "", decimal.Zero
	}
	parts := make([]string, 0, len(t.History)-1)
	for _, h := range t.History[:len(t.History)-1] {
		parts = append(parts, h.String())
	}
	return strings.Join(parts, ", "), t.History[len(t.History)-1]
}

// Verdict returns the human-readable decision label.
func (t Transaction) Verdict() string {
	if t.IsAnomaly {
		return "Anomaly Detected"
	}
	return "Normal Transaction"
}
