package pipeline

import "studio/internal/domain"

// Manifest is the renderer's view of a ready project: scenes in play order
// with their start offsets and every directive the renderer consumes.
type Manifest struct {
	ProjectID     string           `json:"projectId"`
	Title         string           `json:"title"`
	Canvas        domain.Canvas    `json:"canvas"`
	TotalDuration float64          `json:"totalDuration"`
	Voiceover     *domain.AssetRef `json:"voiceover,omitempty"`
	Music         *domain.AssetRef `json:"music,omitempty"`
	Scenes        []ManifestScene  `json:"scenes"`
}

// ManifestScene is one timed scene of the manifest.
type ManifestScene struct {
	ID          string                          `json:"id"`
	Type        domain.SceneType                `json:"type"`
	Start       float64                         `json:"start"`
	Duration    float64                         `json:"duration"`
	Narration   string                          `json:"narration"`
	Background  *domain.Background              `json:"background,omitempty"`
	Overlays    domain.Overlays                 `json:"overlays"`
	Composition *domain.CompositionInstructions `json:"composition,omitempty"`
	Sound       *domain.SoundDesign             `json:"sound,omitempty"`
}

// BuildManifest lays the scenes of p end to end.
func BuildManifest(p *domain.VideoProject) Manifest {
	m := Manifest{
		ProjectID:     p.ID,
		Title:         p.Title,
		Canvas:        p.Canvas,
		TotalDuration: p.TotalDuration,
		Voiceover:     p.Assets.Voiceover,
		Music:         p.Assets.Music,
		Scenes:        make([]ManifestScene, 0, len(p.Scenes)),
	}
	var start float64
	for _, s := range p.Scenes {
		m.Scenes = append(m.Scenes, ManifestScene{
			ID:          s.ID,
			Type:        s.Type,
			Start:       start,
			Duration:    s.Duration,
			Narration:   s.Narration,
			Background:  s.Background,
			Overlays:    s.Overlays,
			Composition: s.Composition,
			Sound:       s.Sound,
		})
		start += s.Duration
	}
	return m
}
