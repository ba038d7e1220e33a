package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/pipeline"
)

const persistTimeout = 30 * time.Second

type runQueue interface {
	Claim(ctx context.Context) (*domain.PipelineRun, error)
	Finish(ctx context.Context, runID string, status domain.RunStatus, errMsg string) error
	Requeue(ctx context.Context, runID string) error
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type assetIndex interface {
	Replace(ctx context.Context, p *domain.VideoProject) error
}

type projectRunner interface {
	Run(ctx context.Context, p *domain.VideoProject) pipeline.Readiness
}

type runWorker struct {
	runs        runQueue
	projects    domain.ProjectRepository
	assets      assetIndex
	pipeline    projectRunner
	logger      zerolog.Logger
	concurrency int
	idleSleep   time.Duration
	staleAfter  time.Duration
}

// staleAfter is how long a run may stay running before it is handed to
// another worker: the polling ceiling of one long job plus a margin.
func staleAfter(cfg *infra.Config) time.Duration {
	ceiling := cfg.PollInterval * time.Duration(cfg.PollMaxAttempts)
	if ceiling < 10*time.Minute {
		ceiling = 10 * time.Minute
	}
	return 3 * ceiling
}

// Run processes queued runs with a fixed number of slots until ctx ends.
func (w *runWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	slots := w.concurrency
	if slots < 1 {
		slots = 1
	}
	for i := 0; i < slots; i++ {
		slot := i
		g.Go(func() error { return w.loop(ctx, slot) })
	}
	if w.staleAfter > 0 {
		g.Go(func() error { return w.requeueLoop(ctx) })
	}
	return g.Wait()
}

func (w *runWorker) loop(ctx context.Context, slot int) error {
	logger := w.logger.With().Int("slot", slot).Logger()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := w.processNext(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("worker: claim failed")
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.idleSleep):
		}
	}
}

func (w *runWorker) requeueLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.staleAfter / 3)
	defer ticker.Stop()
	for {
		n, err := w.runs.RequeueStale(ctx, w.staleAfter)
		switch {
		case err != nil && ctx.Err() == nil:
			w.logger.Error().Err(err).Msg("worker: requeue stale runs failed")
		case n > 0:
			w.logger.Warn().Int64("runs", n).Msg("worker: requeued stale runs")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// processNext claims and processes one run. It reports false when the
// queue was empty.
func (w *runWorker) processNext(ctx context.Context) (bool, error) {
	run, err := w.runs.Claim(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	w.process(ctx, run)
	return true, nil
}

func (w *runWorker) process(ctx context.Context, run *domain.PipelineRun) {
	logger := w.logger.With().Str("run_id", run.ID).Str("project_id", run.ProjectID).Logger()
	started := time.Now()

	p, err := w.projects.Get(ctx, run.ProjectID)
	if err != nil {
		if ctx.Err() != nil {
			w.requeue(logger, run)
			return
		}
		w.finish(logger, run, domain.RunFailed, fmt.Sprintf("load project: %v", err))
		return
	}

	ready := w.pipeline.Run(logger.WithContext(ctx), p)

	// Results are persisted even when shutdown interrupted the run.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := w.projects.Save(persistCtx, p); err != nil {
		w.finish(logger, run, domain.RunFailed, fmt.Sprintf("save project: %v", err))
		return
	}
	if err := w.assets.Replace(persistCtx, p); err != nil {
		logger.Warn().Err(err).Msg("worker: asset index not updated")
	}

	if ctx.Err() != nil {
		w.requeue(logger, run)
		return
	}

	status, msg := domain.RunSucceeded, ""
	if p.Status != domain.ProjectReady {
		status, msg = domain.RunFailed, runError(p, ready)
	}
	logger.Info().Str("status", string(status)).Str("project_status", string(p.Status)).
		Bool("render_ready", ready.Valid).Dur("took", time.Since(started)).Msg("worker: run finished")
	w.finish(logger, run, status, msg)
}

func (w *runWorker) finish(logger zerolog.Logger, run *domain.PipelineRun, status domain.RunStatus, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := w.runs.Finish(ctx, run.ID, status, msg); err != nil {
		logger.Error().Err(err).Str("status", string(status)).Msg("worker: failed to record run result")
	}
}

// requeue hands a run interrupted by shutdown back to the queue. When that
// fails the run stays running until RequeueStale picks it up.
func (w *runWorker) requeue(logger zerolog.Logger, run *domain.PipelineRun) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := w.runs.Requeue(ctx, run.ID); err != nil {
		logger.Error().Err(err).Msg("worker: failed to requeue interrupted run")
		return
	}
	logger.Warn().Msg("worker: run interrupted by shutdown, requeued")
}

func runError(p *domain.VideoProject, ready pipeline.Readiness) string {
	var msgs []string
	for _, is := range ready.Issues {
		if is.Severity == domain.SeverityError {
			msgs = append(msgs, is.Message)
		}
	}
	if len(msgs) == 0 {
		msgs = p.Progress.Errors
	}
	if len(msgs) == 0 {
		return "project is not ready"
	}
	return strings.Join(msgs, "; ")
}
