package model

import "time"

// JobStatus is the state of one remote calculation.
// Keep these values stable; the remote API reports the first five and the store persists all of them.
type JobStatus string

const (
	JobSubmitted JobStatus = "SUBMITTED"
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCESS"
	JobFailed    JobStatus = "FAILED"

	// Client-side terminal states, never reported by the API.
	JobTimedOut  JobStatus = "TIMED_OUT"
	JobCancelled JobStatus = "CANCELLED"
)

// IsActive reports whether polling should continue.
func (s JobStatus) IsActive() bool {
	return s == JobSubmitted || s == JobPending || s == JobRunning
}

func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut, JobCancelled:
		return true
	}
	return false
}

// JobRecord is the persisted view of one calculation, shared by the store and the API.
type JobRecord struct {
	ID          string     `json:"id"`
	RunID       string     `json:"run_id,omitempty"`
	Scenario    string     `json:"scenario"`
	Role        string     `json:"role"` // "full" or "subject"
	RemoteJobID string     `json:"remote_job_id,omitempty"`
	Status      JobStatus  `json:"status"`
	Progress    string     `json:"progress,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
