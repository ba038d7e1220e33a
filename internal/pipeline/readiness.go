package pipeline

import (
	"context"
	"math"
	"strings"

	"studio/internal/domain"
)

const (
	disabledNotDurable = "asset could not be stored durably"
	notDurableRetry    = "is not stored durably yet; the upload is retried on the next check"
)

// Readiness is the outcome of the render-readiness check.
type Readiness struct {
	Valid    bool                 `json:"valid"`
	Issues   []domain.Issue       `json:"issues"`
	Prepared *domain.VideoProject `json:"preparedProject,omitempty"`
}

func (r Readiness) stageOutcome() (domain.StageStatus, string) {
	var errs []string
	for _, is := range r.Issues {
		if is.Severity == domain.SeverityError {
			errs = append(errs, is.Message)
		}
	}
	if !r.Valid {
		return domain.StageError, strings.Join(errs, "; ")
	}
	if len(r.Issues) > 0 {
		return domain.StageComplete, "render ready with warnings"
	}
	return domain.StageComplete, "render ready"
}

// Readiness makes every asset the renderer consumes durable. Inline and
// ephemeral assets are uploaded. Optional features whose asset cannot be
// stored are disabled; mandatory assets keep their ephemeral reference and
// fail the check so a later call can retry the upload. The project is
// modified in place and returned as Prepared.
func (pl *Pipeline) Readiness(ctx context.Context, pc *ProjectContext) Readiness {
	p := pc.Project
	r := Readiness{Valid: true, Issues: []domain.Issue{}, Prepared: p}
	add := func(sceneID string, sev domain.Severity, code, msg string) {
		r.Issues = append(r.Issues, pc.issue(domain.StageRenderPrep, sceneID, sev, code, msg))
		if sev == domain.SeverityError {
			r.Valid = false
		}
	}

	pl.cacheProject(ctx, pc, domain.StageRenderPrep)
	durable := func(a *domain.AssetRef) bool {
		return a != nil && pl.policy.Resolved(*a)
	}

	switch v := p.Assets.Voiceover; {
	case v == nil:
		add("", domain.SeverityError, "voiceover_missing", "project has no voiceover")
	case !durable(v):
		add("", domain.SeverityError, "voiceover_not_durable", "voiceover "+notDurableRetry)
	}
	if m := p.Assets.Music; m != nil && !durable(m) {
		p.Assets.Music = nil
		add("", domain.SeverityWarning, "music_disabled", "music "+disabledNotDurable)
	}
	if prod := p.Product; prod != nil && !durable(prod) {
		add("", domain.SeverityWarning, "product_disabled", "product overlay "+disabledNotDurable)
	}

	for i := range p.Scenes {
		s := &p.Scenes[i]
		switch {
		case s.Background == nil:
			add(s.ID, domain.SeverityError, "background_missing", "scene "+s.ID+" has no background")
		case !durable(&s.Background.Asset):
			add(s.ID, domain.SeverityError, "background_not_durable", "scene "+s.ID+" background "+notDurableRetry)
		}
		if ov := s.Overlays.Product; ov != nil && ov.Enabled && !durable(&ov.Asset) {
			disableOverlay(s, ov, domain.LayerProduct)
			add(s.ID, domain.SeverityWarning, "product_disabled", "product overlay "+disabledNotDurable)
		}
		if ov := s.Overlays.Logo; ov != nil && ov.Enabled && !durable(&ov.Asset) {
			disableOverlay(s, ov, domain.LayerLogo)
			add(s.ID, domain.SeverityWarning, "logo_disabled", "logo "+disabledNotDurable)
		}
		for _, cue := range s.Sound.Cues() {
			if cue.Asset != nil && !durable(cue.Asset) {
				cue.Asset = nil
				add(s.ID, domain.SeverityWarning, "sfx_disabled", "sound cue "+cue.Name+" "+disabledNotDurable)
			}
		}
	}

	if math.Abs(p.SumDurations()-p.TotalDuration) > 1e-6 {
		add("", domain.SeverityError, "timing_mismatch", "scene durations do not sum to the total duration")
	}
	p.RefreshAssets()
	return r
}

func disableOverlay(s *domain.Scene, ov *domain.ImageOverlay, kind domain.LayerKind) {
	ov.Enabled = false
	ov.DisabledReason = disabledNotDurable
	ov.Placement = nil
	dropLayer(s, kind)
}
