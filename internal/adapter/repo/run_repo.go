package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// RunRepositoryPG is the pipeline run queue.
type RunRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRunRepository creates a run queue backed by PostgreSQL.
func NewRunRepository(sql infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// Enqueue queues a run for projectID. Only one run per project may be queued
// or running at a time.
func (r *RunRepositoryPG) Enqueue(ctx context.Context, projectID string) (*domain.PipelineRun, error) {
	run, err := scanRun(r.sql.QueryRow(ctx, sqlinline.QInsertRun, uuid.NewString(), projectID))
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, fmt.Errorf("project %s already has an active run: %w", projectID, domain.ErrDuplicateOperation)
		}
		return nil, err
	}
	return run, nil
}

// Claim marks the oldest queued run as running. It returns domain.ErrNotFound
// when the queue is empty.
func (r *RunRepositoryPG) Claim(ctx context.Context) (*domain.PipelineRun, error) {
	run, err := scanRun(r.sql.QueryRow(ctx, sqlinline.QClaimRun))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// Finish records the final status of a running run.
func (r *RunRepositoryPG) Finish(ctx context.Context, runID string, status domain.RunStatus, errMsg string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFinishRun, runID, string(status), errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("running run %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// Requeue returns a running run to the queue.
func (r *RunRepositoryPG) Requeue(ctx context.Context, runID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequeueRun, runID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("running run %s: %w", runID, domain.ErrNotFound)
	}
	return nil
}

// Latest returns the most recent run of projectID.
func (r *RunRepositoryPG) Latest(ctx context.Context, projectID string) (*domain.PipelineRun, error) {
	run, err := scanRun(r.sql.QueryRow(ctx, sqlinline.QLatestRun, projectID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("runs of project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, err
	}
	return run, nil
}

// RequeueStale returns runs that have been running longer than olderThan to
// the queue and reports how many were moved.
func (r *RunRepositoryPG) RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequeueStaleRuns, int(olderThan.Seconds()))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (*domain.PipelineRun, error) {
	var (
		run    domain.PipelineRun
		status string
	)
	if err := row.Scan(&run.ID, &run.ProjectID, &status, &run.ErrorMessage, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	return &run, nil
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
