package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/pipeline"
	"studio/pkg/zip"
)

// RenderBundle checks readiness and, when the project passes, streams a zip
// holding the prepared project and its render manifest.
func (a *App) RenderBundle(w http.ResponseWriter, r *http.Request) {
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
	res := a.Editor.CheckReadiness(ctx, p)
	if res.Prepared != nil {
		if err := a.Projects.Save(ctx, p); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	if !res.Valid || res.Prepared == nil {
		a.error(w, http.StatusConflict, "not_render_ready", readinessSummary(res.Issues))
		return
	}

	projectDoc, err := json.MarshalIndent(res.Prepared, "", "  ")
	if err != nil {
		a.fail(w, r, fmt.Errorf("encode project: %w", err))
		return
	}
	manifestDoc, err := json.MarshalIndent(pipeline.BuildManifest(res.Prepared), "", "  ")
	if err != nil {
		a.fail(w, r, fmt.Errorf("encode manifest: %w", err))
		return
	}
	now := a.Now()
	archive, err := zip.Archive([]zip.Entry{
		{Filename: "project.json", Data: projectDoc, Modified: now},
		{Filename: "manifest.json", Data: manifestDoc, Modified: now},
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-render.zip"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func readinessSummary(issues []domain.Issue) string {
	var msgs []string
	for _, is := range issues {
		if is.Severity == domain.SeverityError {
			msgs = append(msgs, is.Message)
		}
	}
	if len(msgs) == 0 {
		return "project is not ready to render"
	}
	return strings.Join(msgs, "; ")
}
