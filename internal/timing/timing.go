// Package timing computes scene durations from narration length and keeps the
// project total in sync with the scenes.
package timing

import (
	"math"
	"strings"

	"studio/internal/domain"
)

// Config controls duration estimation. Durations are in seconds.
type Config struct {
	SpeakingRate   float64                      `yaml:"speaking_rate"`
	Buffer         float64                      `yaml:"buffer"`
	MinDuration    float64                      `yaml:"min_duration"`
	MaxDuration    float64                      `yaml:"max_duration"`
	TrailingBuffer float64                      `yaml:"trailing_buffer"`
	Pacing         map[domain.SceneType]float64 `yaml:"pacing"`
}

// DefaultConfig returns the production pacing table.
func DefaultConfig() Config {
	return Config{
		SpeakingRate:   2.5,
		Buffer:         1.5,
		MinDuration:    5,
		MaxDuration:    15,
		TrailingBuffer: 1,
		Pacing: map[domain.SceneType]float64{
			domain.SceneHook:        0.9,
			domain.SceneProblem:     1.0,
			domain.SceneSolution:    1.0,
			domain.SceneBenefit:     1.0,
			domain.SceneFeature:     1.0,
			domain.SceneTestimonial: 1.1,
			domain.SceneProduct:     1.0,
			domain.SceneCTA:         1.2,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.SpeakingRate <= 0 {
		c.SpeakingRate = d.SpeakingRate
	}
	if c.Buffer < 0 {
		c.Buffer = 0
	}
	if c.MinDuration <= 0 {
		c.MinDuration = d.MinDuration
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = d.MaxDuration
	}
	if c.MaxDuration < c.MinDuration {
		c.MaxDuration = c.MinDuration
	}
	if c.TrailingBuffer < 0 {
		c.TrailingBuffer = 0
	}
	if c.Pacing == nil {
		c.Pacing = d.Pacing
	}
	return c
}

// Multiplier returns the pacing multiplier for a scene type.
func (c Config) Multiplier(t domain.SceneType) float64 {
	if m, ok := c.Pacing[t]; ok && m > 0 {
		return m
	}
	return 1.0
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// RawDuration is the unclamped estimate before rounding.
func (c Config) RawDuration(narration string, t domain.SceneType) float64 {
	words := WordCount(narration)
	if words == 0 {
		return 0
	}
	return (float64(words)/c.SpeakingRate + c.Buffer) * c.Multiplier(t)
}

// SceneDuration returns the clamped duration for one scene. Empty narration
// always yields the minimum.
func (c Config) SceneDuration(narration string, t domain.SceneType) float64 {
	raw := c.RawDuration(narration, t)
	if raw <= 0 {
		return c.MinDuration
	}
	d := math.Ceil(raw)
	return math.Min(math.Max(d, c.MinDuration), c.MaxDuration)
}

// Sync recomputes every scene duration and the project total.
func (c Config) Sync(p *domain.VideoProject) float64 {
	last := len(p.Scenes) - 1
	var total float64
	for i := range p.Scenes {
		s := &p.Scenes[i]
		d := c.SceneDuration(s.Narration, s.Type)
		if i == last {
			d += c.TrailingBuffer
		}
		s.Duration = d
		total += d
	}
	p.TotalDuration = total
	return total
}
