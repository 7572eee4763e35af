package domain

import "time"

// Outcome is the final state of an input file after a cycle touched it.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeFailed    Outcome = "failed"
	OutcomeExpired   Outcome = "expired"
)

// ProcessingRecord describes what happened to one input file.
type ProcessingRecord struct {
	CycleID    string        `json:"cycle_id"`
	Path       string        `json:"path"`
	Outcome    Outcome       `json:"outcome"`
	Outputs    []string      `json:"outputs,omitempty"`
	Deleted    bool          `json:"deleted"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
}
