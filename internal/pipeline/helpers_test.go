package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"studio/internal/config"
	"studio/internal/domain"
	"studio/internal/fallback"
	"studio/internal/quality"
	"studio/internal/storage"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const highAnalysis = `{"technical":90,"contentMatch":90,"brandCompliance":90,"composition":90,"textDetected":true,"framing":"medium","environmentVisible":true,"artifacts":[],"issues":[]}`

const lowAnalysis = `{"technical":40,"contentMatch":30,"brandCompliance":40,"composition":40,"textDetected":true,"framing":"medium","environmentVisible":true,"artifacts":[],"issues":["off brief"]}`

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    func(key string) bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, data []byte, key, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil && m.fail(key) {
		return "", errors.New("disk full")
	}
	m.objects[key] = append([]byte(nil), data...)
	return "https://cdn.test/" + key, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type stubFetcher struct {
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	f.calls = append(f.calls, rawURL)
	if strings.Contains(rawURL, "broken") {
		return nil, "", errors.New("gone")
	}
	return []byte("bytes:" + rawURL), "", nil
}

type analyzerFunc func(ctx context.Context, req quality.AnalysisRequest) (string, error)

func (f analyzerFunc) Analyze(ctx context.Context, req quality.AnalysisRequest) (string, error) {
	return f(ctx, req)
}

func provider(name, class string, fn func(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error)) Provider {
	return fallback.Func[domain.GenerationRequest, domain.AssetRef]{ProviderName: name, ProviderClass: class, Fn: fn}
}

// counter hands out sequence numbers to stub providers.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) next() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func aiImages(calls *counter) Provider {
	return provider("gemini:test", "gemini", func(_ context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
		n := calls.next()
		return domain.AssetRef{
			Kind:        domain.AssetKindImage,
			Provenance:  domain.ProvenanceAI,
			Source:      "gemini:test",
			ContentType: "image/png",
			Width:       1920,
			Height:      1080,
			Data:        []byte(fmt.Sprintf("png-%s-%d", req.SceneID, n)),
			Meta:        &domain.AssetMeta{Description: req.Prompt},
		}, nil
	})
}

func voiceover(calls *counter, err error) Provider {
	return provider("tts", "tts", func(_ context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
		calls.next()
		if err != nil {
			return domain.AssetRef{}, err
		}
		return domain.AssetRef{Kind: domain.AssetKindVoiceover, Source: "tts:rachel", ContentType: "audio/mpeg", Data: []byte(req.Text), Duration: req.Duration}, nil
	})
}

func music() Provider {
	return provider("mediajobs:music-v2", "mediajobs", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
		return domain.AssetRef{Kind: domain.AssetKindMusic, URL: "https://jobs.test/music.mp3?X-Amz-Signature=abc", Source: "mediajobs:music-v2", ContentType: "audio/mpeg"}, nil
	})
}

func sfx(calls *counter) Provider {
	return provider("mediajobs:sfx-v1", "mediajobs", func(_ context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
		calls.next()
		return domain.AssetRef{Kind: domain.AssetKindSFX, URL: "https://jobs.test/sfx/" + req.Mood + ".mp3?token=t", ContentType: "audio/mpeg"}, nil
	})
}

func images(providers ...Provider) func(Screen) []Provider {
	return func(Screen) []Provider { return providers }
}

func testProject(t *testing.T) *domain.VideoProject {
	t.Helper()
	p, err := domain.NewProject("Thermal mug", []domain.SceneInput{
		{Type: "hook", Narration: "Tired of cold coffee every single morning?", VisualDirection: "sleepy person at a kitchen table", SearchQuery: "morning coffee"},
		{Type: "product", Narration: "Meet the mug that keeps your drink hot for twelve hours.", VisualDirection: "steel mug on a desk", SearchQuery: "steel mug"},
		{Type: "cta", Narration: "order yours today and save twenty percent.", VisualDirection: "happy customer smiling", SearchQuery: "happy customer"},
	}, fixedNow)
	if err != nil {
		t.Fatalf("new project: %v", err)
	}
	p.Brand = domain.BrandKit{
		Name:       "Warmly",
		Guidelines: "warm tones, natural light",
		Assets:     []domain.BrandAsset{{ID: "logo-1", Kind: domain.BrandLogo, URL: "https://brand.test/logo.png", Width: 200, Height: 100}},
	}
	p.Product = &domain.AssetRef{Kind: domain.AssetKindProduct, URL: "https://uploads.test/mug.png", Provenance: domain.ProvenanceUploaded, Width: 400, Height: 400}
	return p
}

type fixture struct {
	store      *memStore
	fetcher    *stubFetcher
	imageCalls *counter
	voiceCalls *counter
	sfxCalls   *counter
	opts       Options
}

func newFixture() *fixture {
	f := &fixture{
		store:      newMemStore(),
		fetcher:    &stubFetcher{},
		imageCalls: &counter{},
		voiceCalls: &counter{},
		sfxCalls:   &counter{},
	}
	f.opts = Options{
		Profile: config.Default(),
		Sources: Sources{
			Voiceover: voiceover(f.voiceCalls, nil),
			Images:    images(aiImages(f.imageCalls)),
			Music:     []Provider{music()},
			SFX:       []Provider{sfx(f.sfxCalls)},
		},
		Analyzer: analyzerFunc(func(context.Context, quality.AnalysisRequest) (string, error) { return highAnalysis, nil }),
		Store:    f.store,
		Policy:   storage.Policy{},
		Fetcher:  f.fetcher,
		Now:      func() time.Time { return fixedNow },
	}
	return f
}

func (f *fixture) pipeline() *Pipeline {
	return New(f.opts)
}

func stageStatus(p *domain.VideoProject, s domain.Stage) domain.StageStatus {
	return p.Progress.Stage(s).Status
}
