package pipeline

import (
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/brand"
	"studio/internal/domain"
	"studio/internal/fallback"
	"studio/internal/validation"
)

// Chain is a fallback chain over generation requests.
type Chain = fallback.Chain[domain.GenerationRequest, domain.AssetRef]

// ProjectContext is the state of one run. It is created per run and never
// shared between projects.
type ProjectContext struct {
	Project *domain.VideoProject
	Used    *validation.UsedSet
	Brand   *brand.Registry
	Logger  zerolog.Logger
	// Rejections counts validation rejections per stage.
	Rejections map[domain.Stage]int

	pl *Pipeline
}

func (pl *Pipeline) newContext(p *domain.VideoProject) *ProjectContext {
	used := validation.NewUsedSet()
	used.SeedFromProject(p)
	return &ProjectContext{
		Project:    p,
		Used:       used,
		Brand:      brand.NewRegistry(p.Brand),
		Logger:     pl.logger.With().Str("project_id", p.ID).Logger(),
		Rejections: map[domain.Stage]int{},
		pl:         pl,
	}
}

// recordFailures appends chain failures to the project ledger.
func (pc *ProjectContext) recordFailures(stage domain.Stage, sceneID string, failures []domain.ServiceFailure) {
	for _, f := range failures {
		f.Stage = stage
		f.SceneID = sceneID
		pc.Project.RecordFailure(f)
	}
}

// issue records a non-fatal problem and returns it.
func (pc *ProjectContext) issue(stage domain.Stage, sceneID string, sev domain.Severity, code, msg string) domain.Issue {
	is := domain.Issue{Stage: stage, SceneID: sceneID, Severity: sev, Code: code, Message: msg, At: pc.pl.now().UTC()}
	pc.Project.RecordIssue(is)
	return is
}

// review runs the validation gate for a candidate in the context of scene.
func (pc *ProjectContext) review(scene *domain.Scene, a domain.AssetRef) validation.Decision {
	var meta domain.AssetMeta
	if a.Meta != nil {
		meta = *a.Meta
	}
	req := validation.Request{
		Audience:    pc.Project.Audience,
		BrandSafety: pc.Project.BrandSafety,
	}
	if scene != nil {
		req.SceneContext = scene.ContextText()
	}
	return pc.pl.gate.Validate(validation.Candidate{URL: a.URL, Meta: meta}, req, pc.Used)
}

// screen adapts review to the stock providers' candidate filter.
func (pc *ProjectContext) screen(stage domain.Stage, scene *domain.Scene) func(domain.AssetRef) bool {
	return func(a domain.AssetRef) bool {
		d := pc.review(scene, a)
		if !d.Accepted {
			pc.Rejections[stage]++
			pc.Logger.Debug().Str("stage", string(stage)).Str("url", a.URL).Str("rule", string(d.Rule)).Str("term", d.Term).Msg("pipeline: candidate rejected")
		}
		return d.Accepted
	}
}

// accept adapts review to the chain Accept hook.
func (pc *ProjectContext) accept(stage domain.Stage, scene *domain.Scene) func(domain.AssetRef) fallback.Verdict {
	return func(a domain.AssetRef) fallback.Verdict {
		d := pc.review(scene, a)
		if !d.Accepted {
			pc.Rejections[stage]++
			return fallback.Verdict{Reason: d.Reason}
		}
		return fallback.Verdict{Accepted: true}
	}
}

// chain builds a fallback chain for one capability.
func (pc *ProjectContext) chain(name string, providers []Provider, accept func(domain.AssetRef) fallback.Verdict) *Chain {
	return fallback.NewChain(name, fallback.Options[domain.AssetRef]{
		Timeout:  pc.pl.profile.Fallback.Timeout(),
		Attempts: pc.pl.profile.Fallback.Attempts,
		Accept:   accept,
		Logger:   &pc.Logger,
		Now:      pc.pl.now,
	}, providers...)
}

// sceneRequest builds the generation request for a scene.
func (pc *ProjectContext) sceneRequest(scene *domain.Scene, kind domain.AssetKind) domain.GenerationRequest {
	prompt := scene.VisualDirection
	if prompt == "" {
		prompt = scene.Narration
	}
	return domain.GenerationRequest{
		ProjectID:     pc.Project.ID,
		SceneID:       scene.ID,
		Kind:          kind,
		Prompt:        prompt,
		Query:         firstNonEmpty(scene.SearchQuery, scene.VisualDirection),
		FallbackQuery: scene.FallbackQuery,
		Mood:          pc.Project.Mood,
		AspectRatio:   pc.Project.Canvas.AspectRatio(),
		Duration:      scene.Duration,
		Locale:        pc.Project.Locale,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
