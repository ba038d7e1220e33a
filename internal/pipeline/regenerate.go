package pipeline

import (
	"context"
	"fmt"
	"strings"

	"studio/internal/domain"
)

// CheckReadiness runs the render-readiness check outside a full run.
func (pl *Pipeline) CheckReadiness(ctx context.Context, p *domain.VideoProject) Readiness {
	pc := pl.newContext(p)
	r := pl.runReadiness(ctx, pc)
	pl.finalize(pc)
	return r
}

func (pl *Pipeline) runReadiness(ctx context.Context, pc *ProjectContext) Readiness {
	var r Readiness
	pl.runStage(ctx, pc, domain.StageRenderPrep, func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
		r = pl.Readiness(ctx, pc)
		return r.stageOutcome()
	})
	if r.Prepared == nil {
		r = Readiness{Valid: false, Issues: []domain.Issue{}, Prepared: pc.Project}
	}
	return r
}

// RegenerateSceneAsset replaces the image or video of one scene. The current
// asset stays in place unless a replacement is produced. The scene's quality
// score and composition are recomputed for the new asset.
func (pl *Pipeline) RegenerateSceneAsset(ctx context.Context, p *domain.VideoProject, sceneID string, kind domain.AssetKind) (Readiness, error) {
	scene, err := p.SceneByID(sceneID)
	if err != nil {
		return Readiness{}, err
	}
	if kind != domain.AssetKindImage && kind != domain.AssetKindVideo {
		return Readiness{}, fmt.Errorf("%w: cannot regenerate %q", domain.ErrInvalidScene, kind)
	}
	pc := pl.newContext(p)
	stage := domain.StageImages
	if kind == domain.AssetKindVideo {
		stage = domain.StageVideos
	}
	before, prevStage := p.History, *p.Progress.Stage(stage)
	previous := scene.Background
	p.Checkpoint(fmt.Sprintf("regenerate %s %s", kind, sceneID), pl.now())
	var genErr error
	pl.runStage(ctx, pc, stage, func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
		var asset domain.AssetRef
		if kind == domain.AssetKindVideo {
			asset, genErr = pl.generateVideo(ctx, pc, scene)
		} else {
			asset, genErr = pl.generateImage(ctx, pc, scene)
		}
		if genErr == nil && previous != nil {
			// A replacement that cannot be stored must not displace the current asset.
			if genErr = pl.makeDurable(ctx, pc, stage, &scene.Background.Asset, sceneID); genErr != nil {
				scene.Background = previous
			}
		}
		if genErr != nil {
			pc.issue(stage, sceneID, domain.SeverityWarning, "regeneration_failed", genErr.Error())
			return domain.StageError, genErr.Error()
		}
		return domain.StageComplete, "replaced with " + asset.Source
	})
	if genErr != nil {
		// Nothing changed; drop the checkpoint taken for this attempt.
		p.History = before
		*p.Progress.Stage(stage) = prevStage
		pl.finalize(pc)
		return Readiness{Valid: false, Issues: []domain.Issue{}, Prepared: p}, genErr
	}
	scene.InvalidateDerived()
	p.RefreshAssets()
	return pl.refreshScene(ctx, pc, scene), nil
}

// refreshScene recomputes derived data of scene after its background changed.
func (pl *Pipeline) refreshScene(ctx context.Context, pc *ProjectContext, scene *domain.Scene) Readiness {
	pl.runStage(ctx, pc, domain.StageSceneAnalysis, func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
		score := pl.scoreScene(ctx, pc, scene)
		if !score.Analyzed() {
			return domain.StageSkipped, "scene " + scene.ID + " not analyzed: " + score.Reason
		}
		return domain.StageComplete, fmt.Sprintf("scene %s rescored: %s", scene.ID, score.Recommendation)
	})
	pl.runStage(ctx, pc, domain.StageComposition, func(_ context.Context, pc *ProjectContext) (domain.StageStatus, string) {
		pl.composeScene(pc, scene)
		return domain.StageComplete, "scene " + scene.ID + " recomposed"
	})
	pl.runStage(ctx, pc, domain.StageAssetCaching, pl.stageAssetCaching)
	r := pl.runReadiness(ctx, pc)
	pl.finalize(pc)
	return r
}

// RegenerateMusic replaces the project music. The current track is kept
// unless a replacement is produced.
func (pl *Pipeline) RegenerateMusic(ctx context.Context, p *domain.VideoProject) (Readiness, error) {
	if len(pl.sources.Music) == 0 {
		return Readiness{}, fmt.Errorf("no music providers configured: %w", domain.ErrProviderNotReady)
	}
	pc := pl.newContext(p)
	previous := p.Assets.Music
	before, prevStage := p.History, *p.Progress.Stage(domain.StageMusic)
	p.Checkpoint("regenerate music", pl.now())
	var cacheErr error
	status := pl.runStage(ctx, pc, domain.StageMusic, func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
		st, msg := pl.stageMusic(ctx, pc)
		if st != domain.StageComplete || previous == nil {
			return st, msg
		}
		if cacheErr = pl.makeDurable(ctx, pc, domain.StageMusic, pc.Project.Assets.Music, ""); cacheErr != nil {
			return domain.StageError, cacheErr.Error()
		}
		return st, msg
	})
	if status != domain.StageComplete {
		p.History = before
		p.Assets.Music = previous
		*p.Progress.Stage(domain.StageMusic) = prevStage
		pl.finalize(pc)
		err := fmt.Errorf("music regeneration failed: %w", domain.ErrProviderFailure)
		if cacheErr != nil {
			err = fmt.Errorf("music regeneration failed: %w", cacheErr)
		}
		return Readiness{Valid: false, Issues: []domain.Issue{}, Prepared: p}, err
	}
	pl.runStage(ctx, pc, domain.StageAssetCaching, pl.stageAssetCaching)
	r := pl.runReadiness(ctx, pc)
	pl.finalize(pc)
	return r, nil
}

// UpdateNarration edits a scene's narration, re-syncs timing and regenerates
// the voiceover. When synthesis or storing the new track fails the previous
// voiceover is kept and the error is returned; the narration edit stays applied.
func (pl *Pipeline) UpdateNarration(ctx context.Context, p *domain.VideoProject, sceneID, text string) (Readiness, error) {
	scene, err := p.SceneByID(sceneID)
	if err != nil {
		return Readiness{}, err
	}
	text = strings.TrimSpace(text)
	if text == scene.Narration {
		return pl.CheckReadiness(ctx, p), nil
	}
	pc := pl.newContext(p)
	p.Checkpoint("narration "+sceneID, pl.now())
	scene.Narration = text
	scene.InvalidateDerived()
	pl.runStage(ctx, pc, domain.StageTiming, pl.stageTiming)

	var voErr error
	pl.runStage(ctx, pc, domain.StageVoiceover, func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
		asset, err := pl.generateVoiceover(ctx, pc)
		if err == nil && pc.Project.Assets.Voiceover != nil {
			err = pl.makeDurable(ctx, pc, domain.StageVoiceover, &asset, "")
		}
		if err != nil {
			voErr = err
			if pc.Project.Assets.Voiceover != nil {
				pc.issue(domain.StageVoiceover, "", domain.SeverityWarning, "voiceover_stale", "voiceover no longer matches the narration")
				return domain.StageComplete, "previous voiceover kept: " + err.Error()
			}
			return domain.StageError, err.Error()
		}
		pc.Project.Assets.Voiceover = &asset
		return domain.StageComplete, "narration synthesised by " + asset.Source
	})
	r := pl.refreshScene(ctx, pc, scene)
	return r, voErr
}

// Undo restores the previous checkpoint and re-checks readiness.
func (pl *Pipeline) Undo(ctx context.Context, p *domain.VideoProject) (Readiness, error) {
	if err := p.Undo(pl.now()); err != nil {
		return Readiness{}, err
	}
	return pl.CheckReadiness(ctx, p), nil
}

// Redo re-applies the last undone change and re-checks readiness.
func (pl *Pipeline) Redo(ctx context.Context, p *domain.VideoProject) (Readiness, error) {
	if err := p.Redo(pl.now()); err != nil {
		return Readiness{}, err
	}
	return pl.CheckReadiness(ctx, p), nil
}
