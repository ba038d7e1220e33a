package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"

	"studio/internal/domain"
	"studio/internal/fallback"
)

// brandMatchFloor is the registry score at which an uploaded brand photo is
// preferred over generated or stock imagery.
const brandMatchFloor = 15

func (pl *Pipeline) stageTiming(_ context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	p := pc.Project
	if len(p.Scenes) == 0 {
		return domain.StageError, "project has no scenes"
	}
	total := pl.profile.Timing.Sync(p)
	if math.Abs(p.SumDurations()-total) > 1e-9 {
		return domain.StageError, "scene durations do not sum to the total"
	}
	return domain.StageComplete, fmt.Sprintf("%d scenes, %.0fs", len(p.Scenes), total)
}

// narrationText joins the scene narrations into one voiceover script.
func narrationText(p *domain.VideoProject) string {
	parts := make([]string, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		if t := strings.TrimSpace(s.Narration); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (pl *Pipeline) stageVoiceover(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	asset, err := pl.generateVoiceover(ctx, pc)
	if err != nil {
		return domain.StageError, err.Error()
	}
	pc.Project.Assets.Voiceover = &asset
	return domain.StageComplete, "narration synthesised by " + asset.Source
}

// generateVoiceover runs the single mandatory narration provider.
func (pl *Pipeline) generateVoiceover(ctx context.Context, pc *ProjectContext) (domain.AssetRef, error) {
	p := pc.Project
	text := narrationText(p)
	if text == "" {
		return domain.AssetRef{}, fmt.Errorf("narration is empty")
	}
	if pl.sources.Voiceover == nil {
		return domain.AssetRef{}, fmt.Errorf("no voiceover provider configured: %w", domain.ErrProviderNotReady)
	}
	res := pc.chain("voiceover", []Provider{pl.sources.Voiceover}, nil).Run(ctx, domain.GenerationRequest{
		ProjectID: p.ID,
		Kind:      domain.AssetKindVoiceover,
		Text:      text,
		Locale:    p.Locale,
		Voice:     p.Voice,
		Duration:  p.TotalDuration,
	})
	pc.recordFailures(domain.StageVoiceover, "", res.Failures)
	if !res.Success {
		return domain.AssetRef{}, fmt.Errorf("voiceover failed: %w", domain.ErrProviderFailure)
	}
	return res.Asset, nil
}

func (pl *Pipeline) stageImages(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	p := pc.Project
	missing := 0
	for i := range p.Scenes {
		scene := &p.Scenes[i]
		if asset, ok := pl.brandPhoto(pc, scene); ok {
			scene.SetImage(asset)
			pc.Used.Mark(asset.URL)
			continue
		}
		if _, err := pl.generateImage(ctx, pc, scene); err != nil {
			missing++
			pc.issue(domain.StageImages, scene.ID, domain.SeverityError, "image_missing", err.Error())
		}
	}
	p.RefreshAssets()
	msg := fmt.Sprintf("%d/%d scenes have an image", len(p.Scenes)-missing, len(p.Scenes))
	if n := pc.Rejections[domain.StageImages]; n > 0 {
		msg += fmt.Sprintf(", %d candidates rejected", n)
	}
	if missing > 0 {
		return domain.StageError, msg
	}
	return domain.StageComplete, msg
}

// brandPhoto returns an uploaded brand photo that matches the scene strongly.
func (pl *Pipeline) brandPhoto(pc *ProjectContext, scene *domain.Scene) (domain.AssetRef, bool) {
	m, ok := pc.Brand.Best(scene.ContextText(), domain.BrandPhoto)
	if !ok || m.Score < brandMatchFloor || pc.Used.Has(m.Asset.URL) {
		return domain.AssetRef{}, false
	}
	pc.Logger.Debug().Str("scene_id", scene.ID).Str("brand_asset", m.Asset.ID).Int("score", m.Score).Strs("matched", m.Matched).Msg("pipeline: using brand photo")
	return domain.AssetRef{
		Kind:       domain.AssetKindImage,
		URL:        m.Asset.URL,
		Provenance: domain.ProvenanceUploaded,
		Source:     "brand:" + m.Asset.ID,
		Width:      m.Asset.Width,
		Height:     m.Asset.Height,
	}, true
}

// generateImage runs the image chain for scene. The scene keeps its current
// background unless the chain succeeds.
func (pl *Pipeline) generateImage(ctx context.Context, pc *ProjectContext, scene *domain.Scene) (domain.AssetRef, error) {
	return pl.generateBackground(ctx, pc, scene, domain.StageImages, domain.AssetKindImage,
		pl.sources.images(pc.screen(domain.StageImages, scene)))
}

func (pl *Pipeline) generateVideo(ctx context.Context, pc *ProjectContext, scene *domain.Scene) (domain.AssetRef, error) {
	return pl.generateBackground(ctx, pc, scene, domain.StageVideos, domain.AssetKindVideo,
		pl.sources.videos(pc.screen(domain.StageVideos, scene)))
}

func (pl *Pipeline) generateBackground(ctx context.Context, pc *ProjectContext, scene *domain.Scene, stage domain.Stage, kind domain.AssetKind, providers []Provider) (domain.AssetRef, error) {
	if len(providers) == 0 {
		return domain.AssetRef{}, fmt.Errorf("no %s providers configured: %w", kind, domain.ErrProviderNotReady)
	}
	res := pc.chain(string(stage), providers, pc.accept(stage, scene)).Run(ctx, pc.sceneRequest(scene, kind))
	pc.recordFailures(stage, scene.ID, res.Failures)
	if !res.Success {
		return domain.AssetRef{}, chainError(kind, res)
	}
	asset := res.Asset
	if kind == domain.AssetKindVideo {
		scene.SetVideo(asset)
	} else {
		scene.SetImage(asset)
	}
	pc.Used.Mark(asset.URL)
	return asset, nil
}

func chainError(kind domain.AssetKind, res fallback.Result[domain.AssetRef]) error {
	return fmt.Errorf("no %s produced after %d attempts (%d failures, %d rejections): %w",
		kind, len(res.Attempted), len(res.Failures), len(res.Rejections), domain.ErrProviderFailure)
}

func (pl *Pipeline) stageVideos(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	p := pc.Project
	requested, failed := 0, 0
	for i := range p.Scenes {
		scene := &p.Scenes[i]
		if !scene.PreferVideo {
			continue
		}
		requested++
		if _, err := pl.generateVideo(ctx, pc, scene); err != nil {
			failed++
			pc.issue(domain.StageVideos, scene.ID, domain.SeverityWarning, "video_fallback_image", err.Error())
		}
	}
	if requested == 0 {
		return domain.StageSkipped, "no scene requests video"
	}
	p.RefreshAssets()
	msg := fmt.Sprintf("%d/%d requested videos produced", requested-failed, requested)
	if failed > 0 {
		return domain.StageError, msg
	}
	return domain.StageComplete, msg
}

func (pl *Pipeline) stageMusic(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	if len(pl.sources.Music) == 0 {
		return domain.StageSkipped, "no music providers configured"
	}
	asset, err := pl.generateMusic(ctx, pc)
	if err != nil {
		return domain.StageError, err.Error()
	}
	return domain.StageComplete, "music by " + asset.Source
}

func (pl *Pipeline) generateMusic(ctx context.Context, pc *ProjectContext) (domain.AssetRef, error) {
	p := pc.Project
	mood := strings.TrimSpace(p.Mood)
	if mood == "" && len(p.Scenes) > 0 {
		mood = pl.profile.MoodFor(p.Scenes[0].Type)
	}
	res := pc.chain("music", pl.sources.Music, nil).Run(ctx, domain.GenerationRequest{
		ProjectID: p.ID,
		Kind:      domain.AssetKindMusic,
		Mood:      mood,
		Duration:  p.TotalDuration,
	})
	pc.recordFailures(domain.StageMusic, "", res.Failures)
	if !res.Success {
		return domain.AssetRef{}, chainError(domain.AssetKindMusic, res)
	}
	asset := res.Asset
	asset.Kind = domain.AssetKindMusic
	p.Assets.Music = &asset
	return asset, nil
}

func (pl *Pipeline) stageSoundDesign(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	p := pc.Project
	designs := pl.sequencer.Sequence(p.Scenes)
	resolved := map[string]*domain.AssetRef{}
	cues, missing := 0, 0
	for i := range p.Scenes {
		d := designs[i]
		p.Scenes[i].Sound = &d
		for _, c := range d.Cues() {
			cues++
			asset, ok := resolved[c.Name]
			if !ok {
				asset = pl.generateSFX(ctx, pc, p.Scenes[i].ID, c.Name)
				resolved[c.Name] = asset
			}
			if asset == nil {
				missing++
				continue
			}
			copied := *asset
			c.Asset = &copied
		}
	}
	if len(pl.sources.SFX) == 0 {
		return domain.StageComplete, fmt.Sprintf("%d cues assigned, no sfx providers configured", cues)
	}
	return domain.StageComplete, fmt.Sprintf("%d cues assigned, %d without audio", cues, missing)
}

func (pl *Pipeline) generateSFX(ctx context.Context, pc *ProjectContext, sceneID, name string) *domain.AssetRef {
	if len(pl.sources.SFX) == 0 {
		return nil
	}
	res := pc.chain("sfx", pl.sources.SFX, nil).Run(ctx, domain.GenerationRequest{
		ProjectID: pc.Project.ID,
		SceneID:   sceneID,
		Kind:      domain.AssetKindSFX,
		Mood:      name,
		Duration:  2,
	})
	pc.recordFailures(domain.StageSoundDesign, sceneID, res.Failures)
	if !res.Success {
		pc.issue(domain.StageSoundDesign, sceneID, domain.SeverityWarning, "sfx_missing", "no audio for cue "+name)
		return nil
	}
	asset := res.Asset
	asset.Kind = domain.AssetKindSFX
	return &asset
}
