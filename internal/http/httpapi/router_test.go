package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/adapter/repo"
	"studio/internal/domain"
	"studio/internal/http/handlers"
	"studio/internal/pipeline"
)

type memProjects struct {
	mu    sync.Mutex
	docs  map[string][]byte
	saves int
}

func newMemProjects() *memProjects {
	return &memProjects{docs: map[string][]byte{}}
}

func (m *memProjects) Create(_ context.Context, p *domain.VideoProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[p.ID]; ok {
		return domain.ErrDuplicateOperation
	}
	m.docs[p.ID], _ = json.Marshal(p)
	return nil
}

func (m *memProjects) Get(_ context.Context, id string) (*domain.VideoProject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	var p domain.VideoProject
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (m *memProjects) Save(_ context.Context, p *domain.VideoProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.docs[p.ID], _ = json.Marshal(p)
	m.saves++
	return nil
}

type memRuns struct {
	mu   sync.Mutex
	runs map[string]*domain.PipelineRun
	seq  int
}

func (m *memRuns) Enqueue(_ context.Context, projectID string) (*domain.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[string]*domain.PipelineRun{}
	}
	if r, ok := m.runs[projectID]; ok && (r.Status == domain.RunQueued || r.Status == domain.RunRunning) {
		return nil, domain.ErrDuplicateOperation
	}
	m.seq++
	r := &domain.PipelineRun{ID: fmt.Sprintf("run-%d", m.seq), ProjectID: projectID, Status: domain.RunQueued}
	m.runs[projectID] = r
	return r, nil
}

func (m *memRuns) Latest(_ context.Context, projectID string) (*domain.PipelineRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[projectID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type memAssets struct{ items []repo.StoredAsset }

func (m memAssets) ListByProject(context.Context, string) ([]repo.StoredAsset, error) {
	return m.items, nil
}

// stubEditor delegates to a real pipeline unless regenerate is overridden.
type stubEditor struct {
	*pipeline.Pipeline
	regenerate func(p *domain.VideoProject, sceneID string, kind domain.AssetKind) (pipeline.Readiness, error)
}

func (s stubEditor) RegenerateSceneAsset(ctx context.Context, p *domain.VideoProject, sceneID string, kind domain.AssetKind) (pipeline.Readiness, error) {
	if s.regenerate != nil {
		return s.regenerate(p, sceneID, kind)
	}
	return s.Pipeline.RegenerateSceneAsset(ctx, p, sceneID, kind)
}

type fixture struct {
	projects *memProjects
	runs     *memRuns
	editor   *stubEditor
	app      *handlers.App
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{projects: newMemProjects(), runs: &memRuns{}}
	f.editor = &stubEditor{Pipeline: pipeline.New(pipeline.Options{})}
	assets := memAssets{items: []repo.StoredAsset{{Kind: domain.AssetKindVoiceover, URL: "https://cdn.test/vo.mp3", Durable: true}}}
	app := handlers.NewApp(f.projects, f.runs, assets, f.editor, zerolog.Nop())
	app.Defaults.Voice = "narrator"
	app.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	f.app = app
	f.handler = NewRouter(app, Options{Logger: zerolog.Nop(), DefaultLocale: "en-US"})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T) *domain.VideoProject {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/projects", map[string]any{
		"title":      "Mug launch",
		"productUrl": "https://brand.test/mug.png",
		"scenes": []map[string]any{
			{"type": "hook", "narration": "Cold coffee again?"},
			{"type": "cta", "narration": "Order now."},
		},
	}, "X-Locale", "de-DE")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var p domain.VideoProject
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return &p
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not an envelope: %s", rec.Body.String())
	}
	return body.Error.Code
}

func TestHealthAndDocs(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/v1/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/v1/openapi.json", nil)
	if rec.Code != http.StatusOK || !json.Valid(rec.Body.Bytes()) {
		t.Fatalf("openapi document invalid: %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("responses should carry a request id")
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("openapi document should carry an ETag")
	}
	if rec := f.do(t, http.MethodGet, "/v1/openapi.json", nil, "If-None-Match", etag); rec.Code != http.StatusNotModified {
		t.Fatalf("matching ETag should give 304, got %d", rec.Code)
	}
}

func TestHealthReportsFailedChecks(t *testing.T) {
	f := newFixture(t)
	f.app.Checks = map[string]handlers.Check{
		"database": func(context.Context) error { return errors.New("connection refused") },
		"storage":  func(context.Context) error { return nil },
	}
	rec := f.do(t, http.MethodGet, "/v1/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("failed check should give 503, got %d", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != "degraded" || body.Checks["database"] != "unavailable" || body.Checks["storage"] != "ok" {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestCreateProjectAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)

	if p.Status != domain.ProjectDraft || len(p.Scenes) != 2 {
		t.Fatalf("unexpected project %+v", p)
	}
	if p.Locale != "de-DE" {
		t.Fatalf("locale should come from the request, got %q", p.Locale)
	}
	if p.Voice != "narrator" || p.Canvas != domain.DefaultCanvas {
		t.Fatalf("defaults not applied: voice=%q canvas=%+v", p.Voice, p.Canvas)
	}
	if p.Product == nil || p.Product.Provenance != domain.ProvenanceUploaded {
		t.Fatalf("product overlay not attached: %+v", p.Product)
	}
	if _, err := f.projects.Get(context.Background(), p.ID); err != nil {
		t.Fatalf("project not stored: %v", err)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/projects", map[string]any{"title": "empty", "scenes": []any{}})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "bad_request" {
		t.Fatalf("expected bad_request, got %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/v1/projects", map[string]any{"scenes": []map[string]any{{"type": "hook"}}, "canvas": map[string]int{"width": 0, "height": 10}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid canvas should be rejected, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/v1/projects", map[string]any{"scenes": []map[string]any{{"type": "hook"}}, "owner": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown fields should be rejected, got %d", rec.Code)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/projects/missing", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("expected not_found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestEnqueueRunOncePerProject(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)

	rec := f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/runs", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("enqueue status %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/runs", nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "conflict" {
		t.Fatalf("second enqueue should conflict, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/v1/projects/"+p.ID+"/runs/latest", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"status":"queued"`)) {
		t.Fatalf("latest run mismatch: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/v1/projects/missing/runs", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("enqueue for a missing project should 404, got %d", rec.Code)
	}
}

func TestEditsRefusedWhileRunActive(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	if _, err := f.runs.Enqueue(context.Background(), p.ID); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	rec := f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/undo", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("edit during a run should conflict, got %d", rec.Code)
	}
}

func TestUndoWithoutHistory(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	rec := f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/undo", nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "nothing_to_undo" {
		t.Fatalf("expected nothing_to_undo, got %d %s", rec.Code, rec.Body.String())
	}
	if f.projects.saves != 0 {
		t.Fatalf("a rejected undo must not save, saves=%d", f.projects.saves)
	}
	rec = f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/redo", nil)
	if errorCode(t, rec) != "nothing_to_redo" {
		t.Fatalf("expected nothing_to_redo, got %s", rec.Body.String())
	}
}

func TestRegenerateWithoutProviders(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	rec := f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/"+p.Scenes[0].ID+"/regenerate", map[string]string{"kind": "image"})
	if rec.Code != http.StatusServiceUnavailable || errorCode(t, rec) != "provider_not_configured" {
		t.Fatalf("expected provider_not_configured, got %d %s", rec.Code, rec.Body.String())
	}
	stored, _ := f.projects.Get(context.Background(), p.ID)
	if len(stored.History.Past) != 0 {
		t.Fatalf("failed regeneration must not leave a checkpoint")
	}

	rec = f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/"+p.Scenes[0].ID+"/regenerate", map[string]string{"kind": "music"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("music is not a scene asset, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/nope/regenerate", map[string]string{"kind": "image"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown scene should 404, got %d", rec.Code)
	}
}

func TestRegenerateFailureStillPersistsLedger(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	f.editor.regenerate = func(p *domain.VideoProject, sceneID string, _ domain.AssetKind) (pipeline.Readiness, error) {
		p.RecordFailure(domain.ServiceFailure{Service: "gemini:img", Error: "boom", Stage: domain.StageImages, SceneID: sceneID})
		return pipeline.Readiness{Prepared: p}, fmt.Errorf("all image providers failed: %w", domain.ErrProviderFailure)
	}

	rec := f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/"+p.Scenes[0].ID+"/regenerate", map[string]string{"kind": "image"})
	if rec.Code != http.StatusBadGateway || errorCode(t, rec) != "provider_failure" {
		t.Fatalf("expected provider_failure, got %d %s", rec.Code, rec.Body.String())
	}
	stored, _ := f.projects.Get(context.Background(), p.ID)
	if f.projects.saves != 1 || len(stored.Progress.ServiceFailures) != 1 {
		t.Fatalf("failure ledger should be saved: saves=%d failures=%d", f.projects.saves, len(stored.Progress.ServiceFailures))
	}
}

func TestRegenerateSuccess(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	f.editor.regenerate = func(p *domain.VideoProject, sceneID string, kind domain.AssetKind) (pipeline.Readiness, error) {
		if kind != domain.AssetKindVideo {
			return pipeline.Readiness{}, errors.New("unexpected kind " + string(kind))
		}
		s, _ := p.SceneByID(sceneID)
		s.SetVideo(domain.AssetRef{URL: "https://cdn.test/clip.mp4", Durable: true})
		return pipeline.Readiness{Valid: true, Issues: []domain.Issue{}, Prepared: p}, nil
	}

	rec := f.do(t, http.MethodPost, "/v1/projects/"+p.ID+"/scenes/"+p.Scenes[1].ID+"/regenerate", map[string]string{"kind": "VIDEO"})
	if rec.Code != http.StatusOK {
		t.Fatalf("regenerate status %d: %s", rec.Code, rec.Body.String())
	}
	var res pipeline.Readiness
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || !res.Valid {
		t.Fatalf("unexpected readiness %s", rec.Body.String())
	}
	stored, _ := f.projects.Get(context.Background(), p.ID)
	if stored.Scenes[1].Background == nil || stored.Scenes[1].Background.Kind != domain.BackgroundVideo {
		t.Fatalf("regenerated background not saved")
	}
}

func TestRenderReadinessSavesPreparedProject(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	rec := f.do(t, http.MethodGet, "/v1/projects/"+p.ID+"/render-readiness", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readiness status %d: %s", rec.Code, rec.Body.String())
	}
	var res pipeline.Readiness
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	if res.Valid || len(res.Issues) == 0 {
		t.Fatalf("a project without media cannot be render ready: %+v", res)
	}
	if f.projects.saves != 1 {
		t.Fatalf("readiness should persist the project, saves=%d", f.projects.saves)
	}
	stored, _ := f.projects.Get(context.Background(), p.ID)
	if st := stored.Progress.Stage(domain.StageRenderPrep); st.Status != domain.StageError {
		t.Fatalf("render_prep should record the failed check, got %s", st.Status)
	}
}

func TestRenderBundleRefusesUnreadyProject(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	rec := f.do(t, http.MethodGet, "/v1/projects/"+p.ID+"/render-bundle", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("unready bundle should be refused, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "not_render_ready") {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
	if f.projects.saves != 1 {
		t.Fatalf("the failed check should still be persisted, saves=%d", f.projects.saves)
	}
}

func TestUpdateNarrationRequiresText(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	rec := f.do(t, http.MethodPut, "/v1/projects/"+p.ID+"/scenes/"+p.Scenes[0].ID+"/narration", map[string]string{"narration": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty narration should be rejected, got %d", rec.Code)
	}
}

func TestListAssets(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/projects/any/assets", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"kind":"voiceover"`)) {
		t.Fatalf("unexpected assets response %d %s", rec.Code, rec.Body.String())
	}
}
