package domain

import (
	"time"

	"storystudio/internal/domain/jsoncfg"
)

// JobStatus enumerates the status strings the external executor writes to the store.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether polling should stop at this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError || s == JobStatusFailed
}

// Failed reports whether the executor gave up on the job.
func (s JobStatus) Failed() bool {
	return s == JobStatusError || s == JobStatusFailed
}

// Phase is the lifecycle position of one generation attempt as seen by the controller.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseTriggering Phase = "triggering"
	PhasePolling    Phase = "polling"
	PhaseAssembling Phase = "assembling"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
)

// Submission is one user request: the story text plus its settings bundle. It is
// recorded by the caller before the executor is triggered and never modified afterwards.
type Submission struct {
	JobID     string                `json:"storyId"`
	StoryText string                `json:"storyText"`
	FileName  string                `json:"fileName,omitempty"`
	Settings  jsoncfg.StorySettings `json:"settings"`
	CreatedAt time.Time             `json:"createdAt"`
}

// StatusRecord is a single read of a job row.
type StatusRecord struct {
	JobID        string
	Status       JobStatus
	CurrentStep  string
	ErrorMessage string
	// Result is the base result document written by the executor on completion.
	Result    []byte
	UpdatedAt time.Time
}

// StorySummary is a row of the story library listing.
type StorySummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Theme     string    `json:"theme,omitempty"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
