package model

import "time"

// RunStatus represents the current state of a report run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Job names one input and the two report files produced from it.
type Job struct {
	Input       string `json:"input" yaml:"input"`
	Occupations string `json:"occupations" yaml:"occupations"`
	States      string `json:"states" yaml:"states"`
}

// Run represents a single report run over one input.
type Run struct {
	ID        string      `json:"id"`
	Job       Job         `json:"job"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the outcome of a completed run.
type RunSummary struct {
	Certified           int          `json:"certified"`
	RowsRead            int          `json:"rows_read"`
	RowsSkipped         int          `json:"rows_skipped"`
	DistinctOccupations int          `json:"distinct_occupations"`
	DistinctStates      int          `json:"distinct_states"`
	TopOccupations      []RankedItem `json:"top_occupations"`
	TopStates           []RankedItem `json:"top_states"`
	DurationMS          int64        `json:"duration_ms"`
}

// RankedItem is one line of a written report.
type RankedItem struct {
	Key     string `json:"key"`
	Count   int    `json:"count"`
	Percent string `json:"percent"`
}
