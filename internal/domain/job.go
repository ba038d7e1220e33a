package domain

import "time"

// RunStatus enumerates pipeline run lifecycle states.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// PipelineRun is a queued request to process one project.
type PipelineRun struct {
	ID           string
	ProjectID    string
	Status       RunStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
