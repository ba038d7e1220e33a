package domain

import "context"

// ProjectRepository persists project documents and their failure ledger.
type ProjectRepository interface {
	Create(ctx context.Context, project *VideoProject) error
	Get(ctx context.Context, id string) (*VideoProject, error)
	Save(ctx context.Context, project *VideoProject) error
}

// RunRepository queues pipeline runs for the worker.
type RunRepository interface {
	Enqueue(ctx context.Context, projectID string) (*PipelineRun, error)
	Claim(ctx context.Context) (*PipelineRun, error)
	Finish(ctx context.Context, runID string, status RunStatus, errMsg string) error
}
