// Package sound assigns sound-design cues to scenes by type and position.
package sound

import "studio/internal/domain"

// Cue set for one scene type.
type Cue struct {
	TransitionIn  string `yaml:"transition_in"`
	TransitionOut string `yaml:"transition_out"`
	Ambience      string `yaml:"ambience"`
	Emphasis      string `yaml:"emphasis"`
}

// DefaultTable maps scene types to their cue names.
var DefaultTable = map[domain.SceneType]Cue{
	domain.SceneHook:        {TransitionIn: "whoosh_in", TransitionOut: "swoosh_fast"},
	domain.SceneProblem:     {TransitionIn: "low_swell", TransitionOut: "tension_release", Ambience: "room_tone_tense"},
	domain.SceneSolution:    {TransitionIn: "bright_riser", TransitionOut: "soft_whoosh"},
	domain.SceneBenefit:     {TransitionIn: "soft_whoosh", TransitionOut: "soft_whoosh", Ambience: "airy_pad"},
	domain.SceneFeature:     {TransitionIn: "click_pop", TransitionOut: "soft_whoosh"},
	domain.SceneTestimonial: {TransitionIn: "soft_whoosh", TransitionOut: "soft_whoosh", Ambience: "cafe_murmur"},
	domain.SceneProduct:     {TransitionIn: "shimmer_in", TransitionOut: "soft_whoosh", Emphasis: "sparkle_hit"},
	domain.SceneCTA:         {TransitionIn: "riser_short", TransitionOut: "final_hit", Emphasis: "impact_boom"},
}

var defaultCue = Cue{TransitionIn: "soft_whoosh", TransitionOut: "soft_whoosh"}

var ambienceAllowed = map[domain.SceneType]bool{
	domain.SceneProblem:     true,
	domain.SceneTestimonial: true,
	domain.SceneBenefit:     true,
}

var emphasisAllowed = map[domain.SceneType]bool{
	domain.SceneCTA:     true,
	domain.SceneProduct: true,
}

// Sequencer is a pure lookup over a cue table.
type Sequencer struct {
	table map[domain.SceneType]Cue
}

// NewSequencer builds a sequencer; entries in overrides replace the defaults.
func NewSequencer(overrides map[domain.SceneType]Cue) *Sequencer {
	table := make(map[domain.SceneType]Cue, len(DefaultTable)+len(overrides))
	for k, v := range DefaultTable {
		table[k] = v
	}
	for k, v := range overrides {
		table[k] = v
	}
	return &Sequencer{table: table}
}

func cue(name string) *domain.SoundCue {
	if name == "" {
		return nil
	}
	return &domain.SoundCue{Name: name}
}

// Design returns the cues for a scene of type t at index of total.
func (s *Sequencer) Design(t domain.SceneType, index, total int) domain.SoundDesign {
	c, ok := s.table[t]
	if !ok {
		c = defaultCue
	}
	var d domain.SoundDesign
	if index > 0 {
		d.TransitionIn = cue(c.TransitionIn)
	}
	if index < total-1 {
		d.TransitionOut = cue(c.TransitionOut)
	}
	if ambienceAllowed[t] {
		d.Ambience = cue(c.Ambience)
	}
	if emphasisAllowed[t] {
		d.Emphasis = cue(c.Emphasis)
	}
	return d
}

// Sequence returns one design per scene, in order.
func (s *Sequencer) Sequence(scenes []domain.Scene) []domain.SoundDesign {
	out := make([]domain.SoundDesign, len(scenes))
	for i, sc := range scenes {
		out[i] = s.Design(sc.Type, i, len(scenes))
	}
	return out
}
