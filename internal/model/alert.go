package model

import (
	"fmt"
	"time"
)

// Alert is a user-dismissible anomaly notice.
type Alert struct {
	CreatedAt time.Time
	ID        string
	Details   string
	Count     int
}

// Message renders the alert's headline.
func (a Alert) Message() string {
	return fmt.Sprintf("Anomaly Detected! Found %d suspicious transaction(s).", a.Count)
}
