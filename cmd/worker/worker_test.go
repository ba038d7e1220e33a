package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/pipeline"
)

type finished struct {
	status domain.RunStatus
	msg    string
}

type stubQueue struct {
	mu       sync.Mutex
	queued   []*domain.PipelineRun
	finished map[string]finished
	claimErr error
	requeued int
	returned []string
}

func (q *stubQueue) Claim(context.Context) (*domain.PipelineRun, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, q.claimErr
	}
	if len(q.queued) == 0 {
		return nil, domain.ErrNotFound
	}
	run := q.queued[0]
	q.queued = q.queued[1:]
	run.Status = domain.RunRunning
	return run, nil
}

func (q *stubQueue) Finish(_ context.Context, runID string, status domain.RunStatus, msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.finished == nil {
		q.finished = map[string]finished{}
	}
	q.finished[runID] = finished{status: status, msg: msg}
	return nil
}

func (q *stubQueue) Requeue(_ context.Context, runID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.returned = append(q.returned, runID)
	return nil
}

func (q *stubQueue) RequeueStale(context.Context, time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeued++
	return 0, nil
}

type stubProjects struct {
	mu       sync.Mutex
	projects map[string]*domain.VideoProject
	saved    int
}

func (s *stubProjects) Create(context.Context, *domain.VideoProject) error { return nil }

func (s *stubProjects) Get(_ context.Context, id string) (*domain.VideoProject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubProjects) Save(context.Context, *domain.VideoProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return nil
}

type stubAssets struct{ replaced int }

func (s *stubAssets) Replace(context.Context, *domain.VideoProject) error {
	s.replaced++
	return nil
}

type stubRunner struct {
	status domain.ProjectStatus
	// cancel, when set, simulates shutdown arriving mid-run.
	cancel context.CancelFunc
}

func (r stubRunner) Run(_ context.Context, p *domain.VideoProject) pipeline.Readiness {
	if r.cancel != nil {
		r.cancel()
	}
	p.Status = r.status
	if r.status == domain.ProjectReady {
		return pipeline.Readiness{Valid: true, Prepared: p}
	}
	return pipeline.Readiness{Issues: []domain.Issue{{Severity: domain.SeverityError, Message: "project has no voiceover"}}, Prepared: p}
}

func newTestWorker(status domain.ProjectStatus) (*runWorker, *stubQueue, *stubProjects, *stubAssets) {
	q := &stubQueue{}
	projects := &stubProjects{projects: map[string]*domain.VideoProject{
		"p1": {ID: "p1"},
	}}
	assets := &stubAssets{}
	return &runWorker{
		runs:        q,
		projects:    projects,
		assets:      assets,
		pipeline:    stubRunner{status: status},
		logger:      zerolog.Nop(),
		concurrency: 1,
		idleSleep:   time.Millisecond,
	}, q, projects, assets
}

func TestProcessNextSucceeds(t *testing.T) {
	w, q, projects, assets := newTestWorker(domain.ProjectReady)
	q.queued = []*domain.PipelineRun{{ID: "r1", ProjectID: "p1"}}

	processed, err := w.processNext(context.Background())
	if err != nil || !processed {
		t.Fatalf("expected a processed run, got %v %v", processed, err)
	}
	if got := q.finished["r1"]; got.status != domain.RunSucceeded || got.msg != "" {
		t.Fatalf("unexpected finish %+v", got)
	}
	if projects.saved != 1 || assets.replaced != 1 {
		t.Fatalf("project and asset index should be saved once: %d/%d", projects.saved, assets.replaced)
	}
}

func TestProcessNextRecordsFailure(t *testing.T) {
	w, q, projects, _ := newTestWorker(domain.ProjectError)
	q.queued = []*domain.PipelineRun{{ID: "r1", ProjectID: "p1"}, {ID: "r2", ProjectID: "missing"}}

	_, _ = w.processNext(context.Background())
	if got := q.finished["r1"]; got.status != domain.RunFailed || got.msg != "project has no voiceover" {
		t.Fatalf("unexpected finish %+v", got)
	}
	if projects.saved != 1 {
		t.Fatalf("failed runs still persist the project")
	}

	_, _ = w.processNext(context.Background())
	if got := q.finished["r2"]; got.status != domain.RunFailed {
		t.Fatalf("missing project should fail the run, got %+v", got)
	}
}

func TestProcessNextRequeuesInterruptedRun(t *testing.T) {
	w, q, projects, _ := newTestWorker(domain.ProjectError)
	q.queued = []*domain.PipelineRun{{ID: "r1", ProjectID: "p1"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.pipeline = stubRunner{status: domain.ProjectError, cancel: cancel}

	processed, err := w.processNext(ctx)

	if err != nil || !processed {
		t.Fatalf("expected a processed run, got %v %v", processed, err)
	}
	if _, ok := q.finished["r1"]; ok {
		t.Fatalf("interrupted run must not be finished: %+v", q.finished["r1"])
	}
	if len(q.returned) != 1 || q.returned[0] != "r1" {
		t.Fatalf("interrupted run should be requeued, got %v", q.returned)
	}
	if projects.saved != 1 {
		t.Fatalf("partial results should still be saved, saved=%d", projects.saved)
	}
}

func TestProcessNextEmptyQueue(t *testing.T) {
	w, q, _, _ := newTestWorker(domain.ProjectReady)
	processed, err := w.processNext(context.Background())
	if processed || err != nil {
		t.Fatalf("empty queue should report nothing processed, got %v %v", processed, err)
	}

	q.claimErr = errors.New("connection reset")
	if _, err := w.processNext(context.Background()); err == nil {
		t.Fatalf("claim errors should surface")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w, q, _, _ := newTestWorker(domain.ProjectReady)
	w.concurrency = 2
	w.staleAfter = time.Hour
	q.queued = []*domain.PipelineRun{{ID: "r1", ProjectID: "p1"}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		q.mu.Lock()
		_, ok := q.finished["r1"]
		q.mu.Unlock()
		if ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run was not processed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if q.requeued == 0 {
		t.Fatalf("stale runs should be requeued at startup")
	}
}

func TestStaleAfter(t *testing.T) {
	cfg := &infra.Config{PollInterval: 5 * time.Second, PollMaxAttempts: 60}
	if got := staleAfter(cfg); got != 30*time.Minute {
		t.Fatalf("staleAfter = %v", got)
	}
	cfg.PollMaxAttempts = 360
	if got := staleAfter(cfg); got != 90*time.Minute {
		t.Fatalf("staleAfter = %v", got)
	}
}
