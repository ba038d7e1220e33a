package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/pipeline"
)

// RunQueue is the part of the run repository the API needs.
type RunQueue interface {
	Enqueue(ctx context.Context, projectID string) (*domain.PipelineRun, error)
	Latest(ctx context.Context, projectID string) (*domain.PipelineRun, error)
}

// AssetIndex lists the stored assets of a project.
type AssetIndex interface {
	ListByProject(ctx context.Context, projectID string) ([]repo.StoredAsset, error)
}

// Editor applies user edits to a loaded project. *pipeline.Pipeline
// implements it.
type Editor interface {
	RegenerateSceneAsset(ctx context.Context, p *domain.VideoProject, sceneID string, kind domain.AssetKind) (pipeline.Readiness, error)
	RegenerateMusic(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error)
	UpdateNarration(ctx context.Context, p *domain.VideoProject, sceneID, text string) (pipeline.Readiness, error)
	Undo(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error)
	Redo(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error)
	CheckReadiness(ctx context.Context, p *domain.VideoProject) pipeline.Readiness
}

// Defaults fill project fields the client leaves empty.
type Defaults struct {
	Canvas domain.Canvas
	Voice  string
}

// Check probes one dependency for the health endpoint.
type Check func(ctx context.Context) error

// App holds the dependencies of every handler.
type App struct {
	Projects domain.ProjectRepository
	Runs     RunQueue
	Assets   AssetIndex
	Editor   Editor
	Defaults Defaults
	Checks   map[string]Check
	Logger   zerolog.Logger
	Now      func() time.Time

	locks sync.Map
}

// NewApp wires the handlers.
func NewApp(projects domain.ProjectRepository, runs RunQueue, assets AssetIndex, editor Editor, logger zerolog.Logger) *App {
	return &App{
		Projects: projects,
		Runs:     runs,
		Assets:   assets,
		Editor:   editor,
		Defaults: Defaults{Canvas: domain.DefaultCanvas},
		Logger:   logger,
		Now:      time.Now,
	}
}

// lock serializes edits of one project within this process.
func (a *App) lock(projectID string) func() {
	v, _ := a.locks.LoadOrStore(projectID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
