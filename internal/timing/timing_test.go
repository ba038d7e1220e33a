package timing

import (
	"testing"
	"time"

	"studio/internal/domain"
)

func TestSceneDurationClampsShortNarrationToMinimum(t *testing.T) {
	cfg := Config{SpeakingRate: 2.5, Buffer: 1.5, MinDuration: 5, MaxDuration: 15, Pacing: map[domain.SceneType]float64{domain.SceneHook: 1.0}}
	narration := "Hello world this is a short test clip"
	if raw := cfg.RawDuration(narration, domain.SceneHook); raw < 4.69 || raw > 4.71 {
		t.Fatalf("raw duration = %v, want 4.7", raw)
	}
	if got := cfg.SceneDuration(narration, domain.SceneHook); got != 5 {
		t.Fatalf("duration = %v, want 5", got)
	}
}

func TestSceneDurationEmptyNarrationYieldsMinimum(t *testing.T) {
	cfg := DefaultConfig()
	for _, text := range []string{"", "   ", "\n\t"} {
		if got := cfg.SceneDuration(text, domain.SceneCTA); got != cfg.MinDuration {
			t.Fatalf("duration(%q) = %v, want %v", text, got, cfg.MinDuration)
		}
	}
}

func TestSceneDurationClampsToMaximum(t *testing.T) {
	cfg := DefaultConfig()
	long := ""
	for i := 0; i < 200; i++ {
		long += "word "
	}
	if got := cfg.SceneDuration(long, domain.SceneProblem); got != cfg.MaxDuration {
		t.Fatalf("duration = %v, want %v", got, cfg.MaxDuration)
	}
}

func TestSceneDurationAppliesPacingAndCeil(t *testing.T) {
	cfg := Config{SpeakingRate: 2, Buffer: 1, MinDuration: 1, MaxDuration: 60, Pacing: map[domain.SceneType]float64{domain.SceneCTA: 1.5}}
	// 10 words / 2 + 1 = 6, * 1.5 = 9
	got := cfg.SceneDuration("one two three four five six seven eight nine ten", domain.SceneCTA)
	if got != 9 {
		t.Fatalf("duration = %v, want 9", got)
	}
	// unknown type uses 1.0: 6
	if got := cfg.SceneDuration("one two three four five six seven eight nine ten", "montage"); got != 6 {
		t.Fatalf("duration = %v, want 6", got)
	}
}

func TestSyncKeepsTotalEqualToSum(t *testing.T) {
	p, err := domain.NewProject("demo", []domain.SceneInput{
		{Type: "hook", Narration: "Tired of sore knees every morning"},
		{Type: "problem", Narration: ""},
		{Type: "solution", Narration: "Meet the cushion that moves with you all day long and never flattens"},
		{Type: "cta", Narration: "Order today"},
	}, time.Now())
	if err != nil {
		t.Fatalf("NewProject: %v", err)
	}
	cfg := DefaultConfig()
	total := cfg.Sync(p)
	if total != p.TotalDuration {
		t.Fatalf("returned total %v != project total %v", total, p.TotalDuration)
	}
	if sum := p.SumDurations(); sum != p.TotalDuration {
		t.Fatalf("sum %v != total %v", sum, p.TotalDuration)
	}
	last := p.Scenes[len(p.Scenes)-1]
	if last.Duration != cfg.MinDuration+cfg.TrailingBuffer {
		t.Fatalf("last scene duration = %v, want min+trailing %v", last.Duration, cfg.MinDuration+cfg.TrailingBuffer)
	}
	for _, s := range p.Scenes {
		if s.Duration <= 0 {
			t.Fatalf("scene %s has non-positive duration", s.ID)
		}
	}
}

func TestSyncRecomputesAfterNarrationChange(t *testing.T) {
	p, _ := domain.NewProject("demo", []domain.SceneInput{
		{Type: "problem", Narration: "short"},
		{Type: "cta", Narration: "go"},
	}, time.Now())
	cfg := DefaultConfig()
	cfg.Sync(p)
	before := p.TotalDuration
	p.Scenes[0].Narration = "a much longer narration that keeps going with many words so the scene must grow"
	cfg.Sync(p)
	if p.TotalDuration <= before {
		t.Fatalf("total did not grow: before %v after %v", before, p.TotalDuration)
	}
	if p.SumDurations() != p.TotalDuration {
		t.Fatalf("sum and total diverged")
	}
}

func TestWithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{}.WithDefaults()
	if cfg.SpeakingRate != 2.5 || cfg.MinDuration != 5 || cfg.MaxDuration != 15 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Multiplier(domain.SceneHook) != 0.9 {
		t.Fatalf("pacing defaults missing")
	}
}
