package domain

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNewProjectBuildsScenes(t *testing.T) {
	p, err := NewProject("  Mug launch ", []SceneInput{
		{Type: "Intro", Narration: " Cold coffee again? "},
		{Type: "call-to-action", Narration: "Order now.", PreferVideo: true},
	}, t0)
	if err != nil {
		t.Fatalf("NewProject error: %v", err)
	}
	if p.Title != "Mug launch" || p.Status != ProjectDraft || p.ID == "" {
		t.Fatalf("unexpected project header %+v", p)
	}
	if len(p.Scenes) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(p.Scenes))
	}
	if p.Scenes[0].Type != SceneHook || p.Scenes[1].Type != SceneCTA {
		t.Fatalf("scene types not normalized: %q %q", p.Scenes[0].Type, p.Scenes[1].Type)
	}
	if p.Scenes[0].Narration != "Cold coffee again?" || p.Scenes[1].Order != 1 || !p.Scenes[1].PreferVideo {
		t.Fatalf("scene fields not copied: %+v", p.Scenes)
	}
	if p.Scenes[0].ID == p.Scenes[1].ID {
		t.Fatalf("scene ids must be unique")
	}
	if len(p.Progress.Stages) != len(Stages) {
		t.Fatalf("expected every stage tracked, got %d", len(p.Progress.Stages))
	}
	for _, st := range p.Progress.Stages {
		if st.Status != StagePending {
			t.Fatalf("stage %s should start pending", st.Stage)
		}
	}
}

func TestNewProjectRejectsInput(t *testing.T) {
	if _, err := NewProject("x", nil, t0); !errors.Is(err, ErrInvalidProject) {
		t.Fatalf("expected invalid project, got %v", err)
	}
	if _, err := NewProject("x", []SceneInput{{Type: " "}}, t0); !errors.Is(err, ErrInvalidScene) {
		t.Fatalf("expected invalid scene, got %v", err)
	}
}

func TestNormalizeSceneType(t *testing.T) {
	cases := map[string]SceneType{
		"HOOK":           SceneHook,
		" product ":      SceneProduct,
		"call_to_action": SceneCTA,
		"opening":        SceneHook,
		"Unboxing":       SceneType("unboxing"),
	}
	for in, want := range cases {
		if got := NormalizeSceneType(in); got != want {
			t.Errorf("NormalizeSceneType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRefreshAssetsFollowsBackgrounds(t *testing.T) {
	p, _ := NewProject("x", []SceneInput{{Type: "hook"}, {Type: "product"}, {Type: "cta"}}, t0)
	p.Scenes[0].SetImage(AssetRef{URL: "a.png"})
	p.Scenes[1].SetImage(AssetRef{URL: "b.png"})
	p.Scenes[1].SetVideo(AssetRef{URL: "b.mp4"})

	p.RefreshAssets()
	if len(p.Assets.Images) != 1 || p.Assets.Images[0].URL != "a.png" {
		t.Fatalf("unexpected images %+v", p.Assets.Images)
	}
	if len(p.Assets.Videos) != 1 || p.Assets.Videos[0].Kind != AssetKindVideo {
		t.Fatalf("unexpected videos %+v", p.Assets.Videos)
	}
	if p.Scenes[1].Background.Kind != BackgroundVideo {
		t.Fatalf("a scene holds exactly one background")
	}
}

func TestSceneByID(t *testing.T) {
	p, _ := NewProject("x", []SceneInput{{Type: "hook"}}, t0)
	s, err := p.SceneByID(p.Scenes[0].ID)
	if err != nil || s != &p.Scenes[0] {
		t.Fatalf("SceneByID should return a pointer into the project: %v", err)
	}
	if _, err := p.SceneByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProgressSetAndSettled(t *testing.T) {
	pr := NewProgress()
	pr.Set(StageVideos, StageError, "no provider", t0)
	if len(pr.Errors) != 1 || pr.Errors[0] != "videos: no provider" {
		t.Fatalf("unexpected errors %v", pr.Errors)
	}
	if pr.MandatorySettled() {
		t.Fatalf("pending mandatory stages are not settled")
	}
	for _, s := range Stages {
		if s.IsMandatory() {
			pr.Set(s, StageComplete, "", t0)
		}
	}
	pr.Set(StageAssetCaching, StageSkipped, "", t0)
	if pr.MandatorySettled() {
		t.Fatalf("a skip without a reason does not settle a stage")
	}
	pr.Set(StageAssetCaching, StageSkipped, "no object store configured", t0)
	if !pr.MandatorySettled() {
		t.Fatalf("mandatory stages should be settled")
	}
}

func TestSoundDesignCuesOrder(t *testing.T) {
	var none *SoundDesign
	if none.Cues() != nil {
		t.Fatalf("nil design has no cues")
	}
	d := &SoundDesign{Emphasis: &SoundCue{Name: "hit"}, TransitionIn: &SoundCue{Name: "in"}}
	cues := d.Cues()
	if len(cues) != 2 || cues[0].Name != "in" || cues[1].Name != "hit" {
		t.Fatalf("unexpected cues %+v", cues)
	}
}

func TestRectIntersects(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	if !a.Intersects(Rect{X: 50, Y: 50, Width: 100, Height: 100}) {
		t.Fatalf("overlapping rects should intersect")
	}
	if a.Intersects(Rect{X: 100, Y: 0, Width: 10, Height: 10}) {
		t.Fatalf("touching edges do not intersect")
	}
}
