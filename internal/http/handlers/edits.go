package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/pipeline"
)

type regenerateRequest struct {
	Kind string `json:"kind"`
}

type narrationRequest struct {
	Narration string `json:"narration"`
}

type editFunc func(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error)

// edit loads the project, applies fn and persists the result. A project is
// saved whenever fn touched it, including failed attempts, so the failure
// ledger survives.
func (a *App) edit(w http.ResponseWriter, r *http.Request, fn editFunc) {
	id := chi.URLParam(r, "id")
	unlock := a.lock(id)
	defer unlock()

	ctx := r.Context()
	if err := a.ensureIdle(ctx, id); err != nil {
		a.fail(w, r, err)
		return
	}
	p, err := a.Projects.Get(ctx, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, editErr := fn(ctx, p)
	if res.Prepared != nil {
		if err := a.Projects.Save(ctx, p); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if editErr != nil {
		a.fail(w, r, editErr)
		return
	}
	a.json(w, http.StatusOK, res)
}

// ensureIdle refuses edits while a pipeline run owns the project.
func (a *App) ensureIdle(ctx context.Context, projectID string) error {
	if a.Runs == nil {
		return nil
	}
	run, err := a.Runs.Latest(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if run.Status == domain.RunQueued || run.Status == domain.RunRunning {
		return fmt.Errorf("run %s is %s: %w", run.ID, run.Status, domain.ErrDuplicateOperation)
	}
	return nil
}

func (a *App) RegenerateSceneAsset(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	kind := domain.AssetKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if kind == "" {
		kind = domain.AssetKindImage
	}
	sceneID := chi.URLParam(r, "sceneID")
	a.edit(w, r, func(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error) {
		return a.Editor.RegenerateSceneAsset(ctx, p, sceneID, kind)
	})
}

func (a *App) RegenerateMusic(w http.ResponseWriter, r *http.Request) {
	a.edit(w, r, a.Editor.RegenerateMusic)
}

func (a *App) UpdateNarration(w http.ResponseWriter, r *http.Request) {
	var req narrationRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.Narration) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "narration is required")
		return
	}
	sceneID := chi.URLParam(r, "sceneID")
	a.edit(w, r, func(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error) {
		return a.Editor.UpdateNarration(ctx, p, sceneID, req.Narration)
	})
}

func (a *App) Undo(w http.ResponseWriter, r *http.Request) {
	a.edit(w, r, a.Editor.Undo)
}

func (a *App) Redo(w http.ResponseWriter, r *http.Request) {
	a.edit(w, r, a.Editor.Redo)
}

// RenderReadiness prepares the project for rendering. Assets uploaded by the
// check are persisted with the project.
func (a *App) RenderReadiness(w http.ResponseWriter, r *http.Request) {
	a.edit(w, r, func(ctx context.Context, p *domain.VideoProject) (pipeline.Readiness, error) {
		return a.Editor.CheckReadiness(ctx, p), nil
	})
}
