package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"studio/internal/domain"
)

func readyProject(t *testing.T, f *fixture) *domain.VideoProject {
	t.Helper()
	p := testProject(t)
	if r := f.pipeline().Run(context.Background(), p); !r.Valid {
		t.Fatalf("setup run not ready: %+v", r.Issues)
	}
	return p
}

func TestRegenerateSceneAssetFailureKeepsCurrent(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	before := p.Scenes[1].Background.Asset.URL
	failures := len(p.Progress.ServiceFailures)

	f.opts.Sources.Images = images(provider("gemini:test", "gemini", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
		return domain.AssetRef{}, domain.ErrProviderFailure
	}))
	_, err := f.pipeline().RegenerateSceneAsset(context.Background(), p, p.Scenes[1].ID, domain.AssetKindImage)

	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if p.Scenes[1].Background == nil || p.Scenes[1].Background.Asset.URL != before {
		t.Fatalf("background must be kept after a failed regeneration")
	}
	if len(p.History.Past) != 0 {
		t.Fatalf("failed regeneration must not leave a checkpoint")
	}
	if len(p.Progress.ServiceFailures) != failures+1 {
		t.Fatalf("provider failure should be appended to the ledger")
	}
	if p.Status != domain.ProjectReady || stageStatus(p, domain.StageImages) != domain.StageComplete {
		t.Fatalf("project should stay ready, got %s", p.Status)
	}
}

func TestRegenerateSceneAssetThenUndo(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	pl := f.pipeline()
	sceneID := p.Scenes[0].ID
	before := p.Scenes[0].Background.Asset.URL

	ready, err := pl.RegenerateSceneAsset(context.Background(), p, sceneID, domain.AssetKindImage)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	after := p.Scenes[0].Background.Asset.URL
	if after == before || !strings.HasPrefix(after, "https://cdn.test/") {
		t.Fatalf("expected a new durable background, got %q (was %q)", after, before)
	}
	if !ready.Valid || p.Scenes[0].Quality == nil || p.Scenes[0].Composition == nil {
		t.Fatalf("scene should be rescored and recomposed")
	}
	if len(p.History.Past) != 1 {
		t.Fatalf("expected one checkpoint, got %d", len(p.History.Past))
	}

	if _, err := pl.Undo(context.Background(), p); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := p.Scenes[0].Background.Asset.URL; got != before {
		t.Fatalf("undo should restore %q, got %q", before, got)
	}
	if _, err := pl.Redo(context.Background(), p); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if got := p.Scenes[0].Background.Asset.URL; got != after {
		t.Fatalf("redo should restore %q, got %q", after, got)
	}
	if _, err := pl.Redo(context.Background(), p); !errors.Is(err, domain.ErrNothingToRedo) {
		t.Fatalf("expected nothing to redo, got %v", err)
	}
}

func TestRegenerateSceneAssetValidatesInput(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	pl := f.pipeline()

	if _, err := pl.RegenerateSceneAsset(context.Background(), p, "missing", domain.AssetKindImage); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := pl.RegenerateSceneAsset(context.Background(), p, p.Scenes[0].ID, domain.AssetKindMusic); !errors.Is(err, domain.ErrInvalidScene) {
		t.Fatalf("expected invalid scene, got %v", err)
	}
	if _, err := pl.Undo(context.Background(), p); !errors.Is(err, domain.ErrNothingToUndo) {
		t.Fatalf("expected nothing to undo, got %v", err)
	}
}

func TestRegenerateMusic(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	before := *p.Assets.Music

	f.opts.Sources.Music = []Provider{provider("mediajobs:music-v2", "mediajobs", func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
		return domain.AssetRef{}, domain.ErrQuotaExceeded
	})}
	if _, err := f.pipeline().RegenerateMusic(context.Background(), p); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected failure, got %v", err)
	}
	if p.Assets.Music == nil || p.Assets.Music.URL != before.URL {
		t.Fatalf("previous music must be kept")
	}
	if len(p.History.Past) != 0 {
		t.Fatalf("failed regeneration must not leave a checkpoint")
	}

	f.opts.Sources.Music = nil
	if _, err := f.pipeline().RegenerateMusic(context.Background(), p); !errors.Is(err, domain.ErrProviderNotReady) {
		t.Fatalf("expected provider not ready, got %v", err)
	}
}

func TestUpdateNarrationRetimesAndResynthesises(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	pl := f.pipeline()
	oldVoice := p.Assets.Voiceover.URL
	text := "Tired of lukewarm coffee by nine, long before your first meeting has even started?"

	ready, err := pl.UpdateNarration(context.Background(), p, p.Scenes[0].ID, text)

	if err != nil {
		t.Fatalf("update narration: %v", err)
	}
	if p.Scenes[0].Narration != text {
		t.Fatalf("narration not applied")
	}
	if f.voiceCalls.value() != 2 {
		t.Fatalf("voiceover should be regenerated once, calls=%d", f.voiceCalls.value())
	}
	if p.Assets.Voiceover == nil || p.Assets.Voiceover.URL == oldVoice {
		t.Fatalf("expected a new voiceover, got %+v", p.Assets.Voiceover)
	}
	if math.Abs(p.SumDurations()-p.TotalDuration) > 1e-9 {
		t.Fatalf("scene durations %v do not sum to %v", p.SumDurations(), p.TotalDuration)
	}
	if !ready.Valid || p.Status != domain.ProjectReady {
		t.Fatalf("expected ready project, got %+v", ready.Issues)
	}
	if len(p.History.Past) != 1 {
		t.Fatalf("narration edits are undoable")
	}
}

func TestUpdateNarrationKeepsStaleVoiceover(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	oldVoice := p.Assets.Voiceover.URL
	f.opts.Sources.Voiceover = voiceover(f.voiceCalls, errors.New("tts: status 503"))

	_, err := f.pipeline().UpdateNarration(context.Background(), p, p.Scenes[2].ID, "Order today.")

	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected provider failure, got %v", err)
	}
	if p.Assets.Voiceover == nil || p.Assets.Voiceover.URL != oldVoice {
		t.Fatalf("previous voiceover must be kept")
	}
	if !hasIssue(p.Progress.Issues, "voiceover_stale") {
		t.Fatalf("expected voiceover_stale warning")
	}
	if p.Scenes[2].Overlays.Text == nil || p.Scenes[2].Overlays.Text.Content != "Order Today" {
		t.Fatalf("cta copy should follow the new narration: %+v", p.Scenes[2].Overlays.Text)
	}
}

func failKeys(kind domain.AssetKind) func(string) bool {
	return func(key string) bool { return strings.Contains(key, "/"+string(kind)+"/") }
}

func TestRegenerateSceneAssetKeepsCurrentWhenUploadFails(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	before := p.Scenes[1].Background.Asset
	f.store.fail = failKeys(domain.AssetKindImage)

	_, err := f.pipeline().RegenerateSceneAsset(context.Background(), p, p.Scenes[1].ID, domain.AssetKindImage)

	if !errors.Is(err, domain.ErrNotDurable) {
		t.Fatalf("expected not durable, got %v", err)
	}
	bg := p.Scenes[1].Background
	if bg == nil || bg.Asset.URL != before.URL || !bg.Asset.Durable {
		t.Fatalf("durable background must be kept, got %+v", bg)
	}
	if len(p.History.Past) != 0 {
		t.Fatalf("failed regeneration must not leave a checkpoint")
	}
	if p.Status != domain.ProjectReady {
		t.Fatalf("project should stay ready, got %s", p.Status)
	}
}

func TestRegenerateMusicKeepsCurrentWhenUploadFails(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	before := *p.Assets.Music
	f.store.fail = failKeys(domain.AssetKindMusic)

	_, err := f.pipeline().RegenerateMusic(context.Background(), p)

	if !errors.Is(err, domain.ErrNotDurable) {
		t.Fatalf("expected not durable, got %v", err)
	}
	if p.Assets.Music == nil || p.Assets.Music.URL != before.URL {
		t.Fatalf("previous music must be kept, got %+v", p.Assets.Music)
	}
	if len(p.History.Past) != 0 {
		t.Fatalf("failed regeneration must not leave a checkpoint")
	}
}

func TestUpdateNarrationKeepsVoiceoverWhenUploadFails(t *testing.T) {
	f := newFixture()
	p := readyProject(t, f)
	oldVoice := p.Assets.Voiceover.URL
	f.store.fail = failKeys(domain.AssetKindVoiceover)

	_, err := f.pipeline().UpdateNarration(context.Background(), p, p.Scenes[2].ID, "Order today.")

	if !errors.Is(err, domain.ErrNotDurable) {
		t.Fatalf("expected not durable, got %v", err)
	}
	if p.Assets.Voiceover == nil || p.Assets.Voiceover.URL != oldVoice || !p.Assets.Voiceover.Durable {
		t.Fatalf("durable voiceover must be kept, got %+v", p.Assets.Voiceover)
	}
	if !hasIssue(p.Progress.Issues, "voiceover_stale") {
		t.Fatalf("expected voiceover_stale warning")
	}
}
