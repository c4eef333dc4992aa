package domain

import "time"

// QueryEvent is the per-request telemetry record published to the event sink.
type QueryEvent struct {
	RequestID  string    `json:"request_id"`
	Mode       string    `json:"mode"`
	Model      string    `json:"model"`
	QueryType  string    `json:"query_type"`
	DurationMS float64   `json:"duration_ms"`
	Success    bool      `json:"success"`
	Timestamp  time.Time `json:"timestamp"`
}
