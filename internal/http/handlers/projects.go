package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/middleware"
)

type createProjectRequest struct {
	Title       string              `json:"title"`
	Scenes      []domain.SceneInput `json:"scenes"`
	Audience    string              `json:"audience"`
	BrandSafety []string            `json:"brandSafety"`
	Locale      string              `json:"locale"`
	Voice       string              `json:"voice"`
	Mood        string              `json:"mood"`
	Canvas      *domain.Canvas      `json:"canvas"`
	Brand       domain.BrandKit     `json:"brand"`
	ProductURL  string              `json:"productUrl"`
}

type runResponse struct {
	RunID     string `json:"runId"`
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (a *App) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := a.decode(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	p, err := domain.NewProject(req.Title, req.Scenes, a.Now().UTC())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	p.Audience = strings.TrimSpace(req.Audience)
	p.BrandSafety = req.BrandSafety
	p.Mood = strings.TrimSpace(req.Mood)
	p.Brand = req.Brand
	p.Locale = strings.TrimSpace(req.Locale)
	if p.Locale == "" {
		p.Locale = middleware.LocaleFromContext(r.Context())
	}
	p.Voice = strings.TrimSpace(req.Voice)
	if p.Voice == "" {
		p.Voice = a.Defaults.Voice
	}
	p.Canvas = a.Defaults.Canvas
	if req.Canvas != nil {
		if req.Canvas.Width <= 0 || req.Canvas.Height <= 0 {
			a.fail(w, r, fmt.Errorf("%w: canvas must have positive dimensions", domain.ErrInvalidProject))
			return
		}
		p.Canvas = *req.Canvas
	}
	if u := strings.TrimSpace(req.ProductURL); u != "" {
		p.Product = &domain.AssetRef{Kind: domain.AssetKindProduct, URL: u, Provenance: domain.ProvenanceUploaded, Source: "upload"}
	}
	if err := a.Projects.Create(r.Context(), p); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, p)
}

func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := a.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, p)
}

func (a *App) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.Projects.Get(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	run, err := a.Runs.Enqueue(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, toRunResponse(run))
}

func (a *App) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := a.Runs.Latest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toRunResponse(run))
}

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	assets, err := a.Assets.ListByProject(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]map[string]any, 0, len(assets))
	for _, as := range assets {
		items = append(items, map[string]any{
			"scene_id":     as.SceneID,
			"kind":         as.Kind,
			"url":          as.URL,
			"source":       as.Source,
			"provenance":   as.Provenance,
			"content_type": as.ContentType,
			"durable":      as.Durable,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func toRunResponse(run *domain.PipelineRun) runResponse {
	return runResponse{RunID: run.ID, ProjectID: run.ProjectID, Status: string(run.Status), Error: run.ErrorMessage}
}
