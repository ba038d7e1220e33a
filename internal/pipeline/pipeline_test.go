package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/quality"
)

func TestRunProducesRenderReadyProject(t *testing.T) {
	f := newFixture()
	p := testProject(t)

	ready := f.pipeline().Run(context.Background(), p)

	if !ready.Valid {
		t.Fatalf("expected valid project, issues: %+v", ready.Issues)
	}
	if p.Status != domain.ProjectReady {
		t.Fatalf("expected ready, got %s (errors %v)", p.Status, p.Progress.Errors)
	}
	if math.Abs(p.TotalDuration-p.SumDurations()) > 1e-9 || p.TotalDuration <= 0 {
		t.Fatalf("total %v does not match scene sum %v", p.TotalDuration, p.SumDurations())
	}
	for _, s := range domain.Stages {
		st := stageStatus(p, s)
		if s == domain.StageVideos {
			if st != domain.StageSkipped {
				t.Fatalf("videos should be skipped, got %s", st)
			}
			continue
		}
		if st != domain.StageComplete {
			t.Fatalf("stage %s: expected complete, got %s (%s)", s, st, p.Progress.Stage(s).Message)
		}
	}

	if v := p.Assets.Voiceover; v == nil || !strings.HasPrefix(v.URL, "https://cdn.test/projects/"+p.ID+"/voiceover/") || len(v.Data) != 0 {
		t.Fatalf("voiceover not cached: %+v", p.Assets.Voiceover)
	}
	if m := p.Assets.Music; m == nil || !strings.HasPrefix(m.URL, "https://cdn.test/") {
		t.Fatalf("music not cached: %+v", p.Assets.Music)
	}
	if len(p.Assets.Images) != 3 {
		t.Fatalf("expected 3 images, got %d", len(p.Assets.Images))
	}
	for _, s := range p.Scenes {
		if s.Background == nil || !s.Background.Asset.Durable || !strings.HasPrefix(s.Background.Asset.URL, "https://cdn.test/") {
			t.Fatalf("scene %d background not durable: %+v", s.Order, s.Background)
		}
		if s.Quality == nil || s.Quality.State != domain.AnalysisAnalyzedHigh {
			t.Fatalf("scene %d not scored high: %+v", s.Order, s.Quality)
		}
		if s.Composition == nil {
			t.Fatalf("scene %d has no composition", s.Order)
		}
	}
	if len(p.Progress.ServiceFailures) != 0 {
		t.Fatalf("unexpected failures %+v", p.Progress.ServiceFailures)
	}
}

func TestRunSoundDesignPositions(t *testing.T) {
	f := newFixture()
	p := testProject(t)
	f.pipeline().Run(context.Background(), p)

	first, last := p.Scenes[0].Sound, p.Scenes[2].Sound
	if first == nil || first.TransitionIn != nil || first.TransitionOut == nil {
		t.Fatalf("first scene must have no transition in: %+v", first)
	}
	if last == nil || last.TransitionOut != nil || last.Emphasis == nil {
		t.Fatalf("last cta scene must have emphasis and no transition out: %+v", last)
	}
	if last.Emphasis.Asset == nil || !strings.HasPrefix(last.Emphasis.Asset.URL, "https://cdn.test/") {
		t.Fatalf("emphasis cue not cached: %+v", last.Emphasis.Asset)
	}
	if p.Scenes[0].Sound.Ambience != nil {
		t.Fatalf("hook scenes get no ambience")
	}
	// Every distinct cue name is generated once.
	names := map[string]bool{}
	for _, s := range p.Scenes {
		for _, c := range s.Sound.Cues() {
			names[c.Name] = true
		}
	}
	if f.sfxCalls.value() != len(names) {
		t.Fatalf("expected %d sfx generations, got %d", len(names), f.sfxCalls.value())
	}
}

func TestRunComposition(t *testing.T) {
	f := newFixture()
	p := testProject(t)
	f.pipeline().Run(context.Background(), p)

	hook, product, cta := p.Scenes[0], p.Scenes[1], p.Scenes[2]
	if hook.Composition.CameraMotion != "zoom_in" || product.Composition.CameraMotion != "pan_right" {
		t.Fatalf("unexpected camera motions %q %q", hook.Composition.CameraMotion, product.Composition.CameraMotion)
	}
	if hook.Overlays.Product != nil {
		t.Fatalf("hook scenes get no product overlay")
	}
	if product.Overlays.Product == nil || !product.Overlays.Product.Enabled || product.Overlays.Logo == nil {
		t.Fatalf("product scene should carry product and logo overlays: %+v", product.Overlays)
	}
	if cta.Overlays.Text == nil || cta.Overlays.Text.Content != "Order Yours Today And Save Twenty" {
		t.Fatalf("unexpected cta text %+v", cta.Overlays.Text)
	}
	layers := cta.Composition.Layers
	if len(layers) != 3 {
		t.Fatalf("expected logo, product and text layers, got %+v", layers)
	}
	for i := range layers {
		for j := i + 1; j < len(layers); j++ {
			if layers[i].Placement.Rect.Intersects(layers[j].Placement.Rect) {
				t.Fatalf("layers %s and %s overlap", layers[i].Kind, layers[j].Kind)
			}
		}
	}
}

func TestVoiceoverFailureDoesNotBlockVisuals(t *testing.T) {
	f := newFixture()
	f.opts.Sources.Voiceover = voiceover(f.voiceCalls, errors.New("tts: status 500"))
	p := testProject(t)

	ready := f.pipeline().Run(context.Background(), p)

	if stageStatus(p, domain.StageVoiceover) != domain.StageError {
		t.Fatalf("voiceover stage should fail hard")
	}
	if stageStatus(p, domain.StageImages) != domain.StageComplete {
		t.Fatalf("images must still run")
	}
	if p.Status != domain.ProjectError || ready.Valid {
		t.Fatalf("expected error status and invalid readiness, got %s %v", p.Status, ready.Valid)
	}
	if len(p.Progress.ServiceFailures) != 1 || p.Progress.ServiceFailures[0].Stage != domain.StageVoiceover {
		t.Fatalf("expected one recorded voiceover failure, got %+v", p.Progress.ServiceFailures)
	}
}

func TestRerunKeepsLedgers(t *testing.T) {
	f := newFixture()
	f.opts.Sources.Voiceover = voiceover(f.voiceCalls, errors.New("tts: status 500"))
	p := testProject(t)
	f.pipeline().Run(context.Background(), p)
	failures, errs := len(p.Progress.ServiceFailures), len(p.Progress.Errors)
	if failures == 0 || errs == 0 {
		t.Fatalf("first run should record the voiceover failure")
	}

	f.opts.Sources.Voiceover = voiceover(f.voiceCalls, nil)
	ready := f.pipeline().Run(context.Background(), p)

	if !ready.Valid || stageStatus(p, domain.StageVoiceover) != domain.StageComplete {
		t.Fatalf("second run should recover, got %+v", ready.Issues)
	}
	if len(p.Progress.ServiceFailures) < failures || len(p.Progress.Errors) < errs {
		t.Fatalf("earlier failures must survive a rerun: %+v", p.Progress.ServiceFailures)
	}
	if p.Progress.ServiceFailures[0].Stage != domain.StageVoiceover {
		t.Fatalf("first run's failure lost: %+v", p.Progress.ServiceFailures[0])
	}
}

func TestMissingVoiceoverProviderFailsStage(t *testing.T) {
	f := newFixture()
	f.opts.Sources.Voiceover = nil
	p := testProject(t)
	f.pipeline().Run(context.Background(), p)
	st := p.Progress.Stage(domain.StageVoiceover)
	if st.Status != domain.StageError || !strings.Contains(st.Message, "no voiceover provider") {
		t.Fatalf("unexpected voiceover stage %+v", st)
	}
}

func TestEmptyProjectFailsTiming(t *testing.T) {
	f := newFixture()
	p := testProject(t)
	p.Scenes = nil
	ready := f.pipeline().Run(context.Background(), p)
	if stageStatus(p, domain.StageTiming) != domain.StageError || p.Status != domain.ProjectError || ready.Valid {
		t.Fatalf("empty projects must fail timing")
	}
	if stageStatus(p, domain.StageImages) != domain.StageSkipped {
		t.Fatalf("stages after timing should be skipped")
	}
}

func TestImageChainFallbackIsRecorded(t *testing.T) {
	f := newFixture()
	quota := provider("dashscope:wan", "dashscope", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
		return domain.AssetRef{}, domain.ErrQuotaExceeded
	})
	sibling := provider("dashscope:wan-plus", "dashscope", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
		t.Fatalf("exhausted class must be skipped")
		return domain.AssetRef{}, nil
	})
	f.opts.Sources.Images = images(quota, sibling, aiImages(f.imageCalls))
	p := testProject(t)

	f.pipeline().Run(context.Background(), p)

	if p.Status != domain.ProjectReady {
		t.Fatalf("expected ready, got %s", p.Status)
	}
	if len(p.Progress.ServiceFailures) != 2*len(p.Scenes) {
		t.Fatalf("expected two failures per scene, got %d", len(p.Progress.ServiceFailures))
	}
	f0, f1 := p.Progress.ServiceFailures[0], p.Progress.ServiceFailures[1]
	if f0.Service != "dashscope:wan" || !f0.FallbackUsed || f0.Stage != domain.StageImages || f0.SceneID != p.Scenes[0].ID {
		t.Fatalf("unexpected failure %+v", f0)
	}
	if !strings.Contains(f1.Error, "skipped") {
		t.Fatalf("sibling should be recorded as skipped: %+v", f1)
	}
}

func TestStockCandidatesAreScreened(t *testing.T) {
	f := newFixture()
	candidates := []domain.AssetRef{
		{URL: "https://stock.test/bearded-guy.jpg", Provenance: domain.ProvenanceStock, Meta: &domain.AssetMeta{Tags: []string{"bearded", "man", "coffee"}}},
		{URL: "https://stock.test/woman-coffee.jpg", Provenance: domain.ProvenanceStock, Meta: &domain.AssetMeta{Tags: []string{"woman", "coffee"}}},
		{URL: "https://stock.test/mug-closeup.jpg", Provenance: domain.ProvenanceStock, Meta: &domain.AssetMeta{Tags: []string{"mug", "product"}}},
		{URL: "https://stock.test/smiling-lady.jpg", Provenance: domain.ProvenanceStock, Meta: &domain.AssetMeta{Tags: []string{"lady", "smiling"}}},
	}
	f.opts.Sources.Images = func(screen Screen) []Provider {
		return []Provider{provider("pexels:photos", "pexels", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
			for _, c := range candidates {
				if screen(c) {
					return c, nil
				}
			}
			return domain.AssetRef{}, domain.ErrProviderFailure
		})}
	}
	p := testProject(t)
	p.Audience = "busy women 25-40"

	f.pipeline().Run(context.Background(), p)

	seen := map[string]bool{}
	for _, s := range p.Scenes {
		if s.Background == nil {
			t.Fatalf("scene %d has no background", s.Order)
		}
		if s.Background.Asset.Provenance != domain.ProvenanceStock {
			t.Fatalf("expected stock background, got %+v", s.Background.Asset)
		}
		if seen[s.Background.Asset.Meta.Tags[0]] {
			t.Fatalf("stock asset reused: %v", s.Background.Asset.Meta.Tags)
		}
		seen[s.Background.Asset.Meta.Tags[0]] = true
		if s.Background.Asset.Meta.Tags[0] == "bearded" {
			t.Fatalf("opposite-gender candidate accepted for a female audience")
		}
	}
	if !strings.Contains(p.Progress.Stage(domain.StageImages).Message, "rejected") {
		t.Fatalf("expected rejections in stage message: %q", p.Progress.Stage(domain.StageImages).Message)
	}
}

func TestAutoRegenerationOnLowScore(t *testing.T) {
	f := newFixture()
	calls := 0
	f.opts.Analyzer = analyzerFunc(func(_ context.Context, req quality.AnalysisRequest) (string, error) {
		calls++
		if strings.HasSuffix(string(req.Data), "-1") {
			return lowAnalysis, nil
		}
		return highAnalysis, nil
	})
	p := testProject(t)

	f.pipeline().Run(context.Background(), p)

	// Three scenes plus one regeneration of the first.
	if f.imageCalls.value() != 4 || calls != 4 {
		t.Fatalf("expected 4 generations and analyses, got %d and %d", f.imageCalls.value(), calls)
	}
	if q := p.Scenes[0].Quality; q == nil || q.State != domain.AnalysisAnalyzedHigh {
		t.Fatalf("regenerated scene should score high: %+v", q)
	}
	if !strings.Contains(p.Progress.Stage(domain.StageSceneAnalysis).Message, "1 regenerated") {
		t.Fatalf("unexpected analysis message %q", p.Progress.Stage(domain.StageSceneAnalysis).Message)
	}
}

func TestAutoRegenerationDisabled(t *testing.T) {
	f := newFixture()
	zero := 0
	f.opts.Profile.MaxRegenerations = &zero
	f.opts.Analyzer = analyzerFunc(func(context.Context, quality.AnalysisRequest) (string, error) { return lowAnalysis, nil })
	p := testProject(t)

	f.pipeline().Run(context.Background(), p)

	if f.imageCalls.value() != 3 {
		t.Fatalf("no regeneration expected, got %d generations", f.imageCalls.value())
	}
	if p.Scenes[0].Quality.State != domain.AnalysisAnalyzedLow {
		t.Fatalf("expected analyzed_low, got %s", p.Scenes[0].Quality.State)
	}
	if p.Status != domain.ProjectReady {
		t.Fatalf("low quality does not block readiness, got %s", p.Status)
	}
}

func TestNoAnalyzerMarksNotAnalyzed(t *testing.T) {
	f := newFixture()
	f.opts.Analyzer = nil
	p := testProject(t)
	f.pipeline().Run(context.Background(), p)
	if stageStatus(p, domain.StageSceneAnalysis) != domain.StageSkipped {
		t.Fatalf("analysis should be skipped without an analyzer")
	}
	for _, s := range p.Scenes {
		if s.Quality == nil || s.Quality.State != domain.AnalysisNotAnalyzed || s.Quality.Composite != nil {
			t.Fatalf("expected explicit not_analyzed, got %+v", s.Quality)
		}
	}
	if p.Status != domain.ProjectReady {
		t.Fatalf("expected ready, got %s", p.Status)
	}
}

func TestStagePanicIsContained(t *testing.T) {
	f := newFixture()
	f.opts.Analyzer = analyzerFunc(func(context.Context, quality.AnalysisRequest) (string, error) {
		panic("vision model exploded")
	})
	p := testProject(t)

	f.pipeline().Run(context.Background(), p)

	st := p.Progress.Stage(domain.StageSceneAnalysis)
	if st.Status != domain.StageError || !strings.Contains(st.Message, "vision model exploded") {
		t.Fatalf("panic should mark the stage error: %+v", st)
	}
	if stageStatus(p, domain.StageComposition) != domain.StageComplete || p.Status != domain.ProjectReady {
		t.Fatalf("later stages must still run, status %s", p.Status)
	}
}

func TestVideoPreferredScenes(t *testing.T) {
	f := newFixture()
	f.opts.Sources.Videos = func(Screen) []Provider {
		return []Provider{provider("pexels:videos", "pexels", func(_ context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
			if req.Duration <= 0 {
				t.Fatalf("video requests must carry the scene duration")
			}
			return domain.AssetRef{URL: "https://videos.test/clip.mp4", Provenance: domain.ProvenanceStock, ContentType: "video/mp4"}, nil
		})}
	}
	p := testProject(t)
	p.Scenes[1].PreferVideo = true

	f.pipeline().Run(context.Background(), p)

	bg := p.Scenes[1].Background
	if bg == nil || bg.Kind != domain.BackgroundVideo {
		t.Fatalf("expected video background, got %+v", bg)
	}
	if len(p.Assets.Videos) != 1 || len(p.Assets.Images) != 2 {
		t.Fatalf("unexpected aggregates: %d videos %d images", len(p.Assets.Videos), len(p.Assets.Images))
	}
	if p.Scenes[1].Composition.CameraMotion != "none" {
		t.Fatalf("video backgrounds get no camera motion")
	}
}

func TestVideoFailureKeepsImage(t *testing.T) {
	f := newFixture()
	f.opts.Sources.Videos = func(Screen) []Provider {
		return []Provider{provider("mediajobs:veo", "mediajobs", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
			return domain.AssetRef{}, domain.ErrProviderFailure
		})}
	}
	p := testProject(t)
	p.Scenes[0].PreferVideo = true

	f.pipeline().Run(context.Background(), p)

	if bg := p.Scenes[0].Background; bg == nil || bg.Kind != domain.BackgroundImage {
		t.Fatalf("image background must be kept, got %+v", bg)
	}
	if stageStatus(p, domain.StageVideos) != domain.StageError || p.Status != domain.ProjectReady {
		t.Fatalf("video failure is not fatal: videos=%s status=%s", stageStatus(p, domain.StageVideos), p.Status)
	}
}
