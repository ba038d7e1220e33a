package pipeline

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/quality"
)

func (pl *Pipeline) stageSceneAnalysis(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	p := pc.Project
	analyzed, low, regenerated := 0, 0, 0
	for i := range p.Scenes {
		scene := &p.Scenes[i]
		if scene.Background == nil {
			continue
		}
		score := pl.scoreScene(ctx, pc, scene)
		for attempt := 0; attempt < pl.profile.Regenerations() && needsRegeneration(score); attempt++ {
			if err := pl.regenerateBackground(ctx, pc, scene); err != nil {
				pc.issue(domain.StageSceneAnalysis, scene.ID, domain.SeverityWarning, "regeneration_failed", err.Error())
				break
			}
			regenerated++
			score = pl.scoreScene(ctx, pc, scene)
		}
		if score.Analyzed() {
			analyzed++
			if score.State == domain.AnalysisAnalyzedLow {
				low++
				pc.issue(domain.StageSceneAnalysis, scene.ID, domain.SeverityWarning, "quality_low",
					fmt.Sprintf("composite %d: %s", *score.Composite, score.Recommendation))
			}
		}
	}
	if !pl.hasAnalyzer {
		return domain.StageSkipped, "quality analyzer not configured; scenes marked not_analyzed"
	}
	return domain.StageComplete, fmt.Sprintf("%d analyzed, %d low, %d regenerated", analyzed, low, regenerated)
}

func needsRegeneration(q *domain.QualityScore) bool {
	return q.Analyzed() && q.Recommendation.NeedsRegeneration()
}

// scoreScene scores the scene's current background and stores the result.
func (pl *Pipeline) scoreScene(ctx context.Context, pc *ProjectContext, scene *domain.Scene) *domain.QualityScore {
	p := pc.Project
	var asset domain.AssetRef
	if scene.Background != nil {
		asset = scene.Background.Asset
	}
	score := pl.engine.Score(ctx, quality.Target{
		Asset:                  asset,
		SceneType:              scene.Type,
		Narration:              scene.Narration,
		VisualDirection:        scene.VisualDirection,
		TextOverlayRequired:    scene.TextOverlayRequired,
		SubjectWithEnvironment: scene.SubjectWithEnvironment,
		BrandGuidelines:        p.Brand.Guidelines,
	}, quality.Capabilities{BrandContext: p.Brand.HasGuidelines()})
	scene.Quality = score
	return score
}

// regenerateBackground replaces the scene background with a new asset of the
// same kind. On failure the current background is kept.
func (pl *Pipeline) regenerateBackground(ctx context.Context, pc *ProjectContext, scene *domain.Scene) error {
	var err error
	if scene.Background != nil && scene.Background.Kind == domain.BackgroundVideo {
		_, err = pl.generateVideo(ctx, pc, scene)
	} else {
		_, err = pl.generateImage(ctx, pc, scene)
	}
	if err != nil {
		return err
	}
	scene.InvalidateDerived()
	pc.Project.RefreshAssets()
	return nil
}
