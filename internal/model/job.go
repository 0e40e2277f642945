package model

import (
	"encoding/json"
	"time"
)

// JobStatus represents the current state of an analysis job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// Rank orders statuses for the monotonic-transition check:
// queued < processing < {complete, failed}.
func (s JobStatus) Rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusProcessing:
		return 1
	case JobStatusComplete, JobStatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the status admits no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// AnalysisJob tracks one invocation of the external analysis engine.
// Under the v2 contract the profile id equals the engine job id once the
// job completes.
type AnalysisJob struct {
	JobID        string          `json:"job_id"`
	ProfileID    string          `json:"profile_id,omitempty"`
	Status       JobStatus       `json:"status"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	RawResult    json.RawMessage `json:"raw_result,omitempty"`
}

// Duration returns the elapsed analysis time, zero when timestamps are
// missing or the startedAt backfill collapsed them.
func (j *AnalysisJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
