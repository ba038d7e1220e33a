// Package config loads the pipeline profile: the tunable tables that shape a
// production run (pacing, vocabularies, scoring, placement, provider order).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"studio/internal/domain"
	"studio/internal/placement"
	"studio/internal/quality"
	"studio/internal/sound"
	"studio/internal/timing"
	"studio/internal/validation"
)

// DefaultMaxRegenerations bounds automatic image regenerations per scene.
const DefaultMaxRegenerations = 1

// Profile is the YAML pipeline profile.
type Profile struct {
	Canvas           domain.Canvas                  `yaml:"canvas"`
	Timing           timing.Config                  `yaml:"timing"`
	Validation       validation.Config              `yaml:"validation"`
	Quality          QualityProfile                 `yaml:"quality"`
	Placement        PlacementProfile               `yaml:"placement"`
	Sound            map[domain.SceneType]sound.Cue `yaml:"sound"`
	Providers        ProviderProfile                `yaml:"providers"`
	Fallback         FallbackProfile                `yaml:"fallback"`
	MaxRegenerations *int                           `yaml:"max_regenerations"`
	TrustedPrefixes  []string                       `yaml:"trusted_prefixes"`
	Moods            map[domain.SceneType]string    `yaml:"moods"`
}

// QualityProfile tunes the scoring engine.
type QualityProfile struct {
	Weights    quality.Weights    `yaml:"weights"`
	Thresholds quality.Thresholds `yaml:"thresholds"`
}

// PlacementProfile holds the overlay requests applied during composition.
type PlacementProfile struct {
	Margin  int               `yaml:"margin"`
	Logo    placement.Request `yaml:"logo"`
	Product placement.Request `yaml:"product"`
	Text    placement.Request `yaml:"text"`
}

// ProviderProfile orders the chains. Names are provider classes.
type ProviderProfile struct {
	Images      []string `yaml:"images"`
	Videos      []string `yaml:"videos"`
	VideoModel  string   `yaml:"video_model"`
	MusicModels []string `yaml:"music_models"`
	SFXModel    string   `yaml:"sfx_model"`
}

// FallbackProfile tunes every chain.
type FallbackProfile struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	Attempts       int `yaml:"attempts"`
}

// Timeout returns the per-provider call timeout.
func (f FallbackProfile) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Default returns the built-in profile.
func Default() Profile {
	return Profile{}.WithDefaults()
}

// Load reads a profile from path. An empty path yields the default profile.
func Load(path string) (Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML profile over the defaults. Pacing entries merge with
// the default table; lists replace it.
func Parse(raw []byte) (Profile, error) {
	p := Profile{
		Timing:  timing.DefaultConfig(),
		Quality: QualityProfile{Weights: quality.DefaultWeights, Thresholds: quality.DefaultThresholds},
	}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// WithDefaults fills zero values.
func (p Profile) WithDefaults() Profile {
	if p.Canvas.Width <= 0 || p.Canvas.Height <= 0 {
		p.Canvas = domain.DefaultCanvas
	}
	p.Timing = p.Timing.WithDefaults()
	if p.Quality.Weights == (quality.Weights{}) {
		p.Quality.Weights = quality.DefaultWeights
	}
	if p.Quality.Thresholds == (quality.Thresholds{}) {
		p.Quality.Thresholds = quality.DefaultThresholds
	}
	if p.Placement.Margin <= 0 {
		p.Placement.Margin = placement.DefaultMargin
	}
	if p.Placement.Logo == (placement.Request{}) {
		p.Placement.Logo = placement.Request{Size: placement.SizeSmall, Anchor: placement.TopRight, MaxHeightPercent: 20}
	}
	if p.Placement.Product == (placement.Request{}) {
		p.Placement.Product = placement.Request{Size: placement.SizeMedium, Anchor: placement.BottomRight, MaxHeightPercent: 40}
	}
	if p.Placement.Text == (placement.Request{}) {
		p.Placement.Text = placement.Request{Size: placement.SizeXLarge, Anchor: placement.LowerThirdLeft, AspectRatio: 4}
	}
	if len(p.Providers.Images) == 0 {
		p.Providers.Images = []string{"pexels", "gemini", "dashscope"}
	}
	if len(p.Providers.Videos) == 0 {
		p.Providers.Videos = []string{"pexels", "mediajobs"}
	}
	if p.Providers.VideoModel == "" {
		p.Providers.VideoModel = "veo-3-fast"
	}
	if len(p.Providers.MusicModels) == 0 {
		p.Providers.MusicModels = []string{"music-v2", "music-v1"}
	}
	if p.Providers.SFXModel == "" {
		p.Providers.SFXModel = "sfx-v1"
	}
	if p.Fallback.TimeoutSeconds <= 0 {
		p.Fallback.TimeoutSeconds = 180
	}
	if p.Fallback.Attempts <= 0 {
		p.Fallback.Attempts = 1
	}
	if p.MaxRegenerations == nil {
		n := DefaultMaxRegenerations
		p.MaxRegenerations = &n
	}
	if p.Moods == nil {
		p.Moods = map[domain.SceneType]string{}
	}
	return p
}

// Regenerations returns the automatic regeneration limit.
func (p Profile) Regenerations() int {
	if p.MaxRegenerations == nil || *p.MaxRegenerations < 0 {
		return 0
	}
	return *p.MaxRegenerations
}

// Validate rejects profiles the pipeline cannot run with.
func (p Profile) Validate() error {
	w := p.Quality.Weights
	sum := w.Technical + w.ContentMatch + w.BrandCompliance + w.Composition
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("quality weights must sum to 1, got %.2f", sum)
	}
	t := p.Quality.Thresholds
	if !(t.Approved > t.NeedsReview && t.NeedsReview > t.Regenerate && t.Regenerate >= 0) {
		return fmt.Errorf("quality thresholds must be strictly descending: %+v", t)
	}
	if p.Timing.MinDuration > p.Timing.MaxDuration {
		return fmt.Errorf("timing min_duration exceeds max_duration")
	}
	return nil
}

// MoodFor returns the music mood for a project whose opening scene is t.
func (p Profile) MoodFor(t domain.SceneType) string {
	if m := strings.TrimSpace(p.Moods[t]); m != "" {
		return m
	}
	return "upbeat"
}
