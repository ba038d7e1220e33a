// Package pipeline orchestrates the production stages of a video project:
// timing, generation through fallback chains, validation, scoring,
// composition, durability caching and the render-readiness check.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/config"
	"studio/internal/domain"
	"studio/internal/quality"
	"studio/internal/sound"
	"studio/internal/storage"
	"studio/internal/validation"
)

// Options wires a Pipeline.
type Options struct {
	Profile  config.Profile
	Sources  Sources
	Analyzer quality.Analyzer
	Store    storage.Store
	Policy   storage.Policy
	Fetcher  Fetcher
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Pipeline runs projects. It holds no per-project state and can serve many
// projects concurrently.
type Pipeline struct {
	profile     config.Profile
	sources     Sources
	hasAnalyzer bool
	gate        *validation.Gate
	engine      *quality.Engine
	sequencer   *sound.Sequencer
	store       storage.Store
	policy      storage.Policy
	fetcher     Fetcher
	logger      zerolog.Logger
	now         func() time.Time
}

// New builds a pipeline.
func New(opts Options) *Pipeline {
	logger := zerolog.New(io.Discard)
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	profile := opts.Profile
	if profile.MaxRegenerations == nil {
		profile = profile.WithDefaults()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	engine := quality.NewEngine(opts.Analyzer,
		quality.WithWeights(profile.Quality.Weights),
		quality.WithThresholds(profile.Quality.Thresholds),
		quality.WithLogger(logger),
		quality.WithClock(now),
	)
	return &Pipeline{
		profile:     profile,
		sources:     opts.Sources,
		hasAnalyzer: opts.Analyzer != nil,
		gate:        validation.NewGate(profile.Validation),
		engine:      engine,
		sequencer:   sound.NewSequencer(profile.Sound),
		store:       opts.Store,
		policy:      opts.Policy,
		fetcher:     fetcher,
		logger:      logger,
		now:         now,
	}
}

// Profile returns the active pipeline profile.
func (pl *Pipeline) Profile() config.Profile { return pl.profile }

// stageFunc performs one stage and reports its outcome.
type stageFunc func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string)

// Run executes every stage in order and returns the render-readiness result.
// It never returns an error: failures are recorded on the project.
func (pl *Pipeline) Run(ctx context.Context, p *domain.VideoProject) Readiness {
	pc := pl.newContext(p)
	p.Status = domain.ProjectGenerating
	p.Progress.BeginRun()
	pc.Logger.Info().Int("scenes", len(p.Scenes)).Msg("pipeline: run started")

	var ready Readiness
	stages := []struct {
		stage domain.Stage
		fn    stageFunc
	}{
		{domain.StageTiming, pl.stageTiming},
		{domain.StageVoiceover, pl.stageVoiceover},
		{domain.StageImages, pl.stageImages},
		{domain.StageVideos, pl.stageVideos},
		{domain.StageMusic, pl.stageMusic},
		{domain.StageSoundDesign, pl.stageSoundDesign},
		{domain.StageSceneAnalysis, pl.stageSceneAnalysis},
		{domain.StageComposition, pl.stageComposition},
		{domain.StageAssetCaching, pl.stageAssetCaching},
		{domain.StageRenderPrep, func(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
			ready = pl.Readiness(ctx, pc)
			return ready.stageOutcome()
		}},
	}
	for i, s := range stages {
		status := pl.runStage(ctx, pc, s.stage, s.fn)
		if s.stage == domain.StageTiming && status != domain.StageComplete {
			for _, rest := range stages[i+1:] {
				p.Progress.Set(rest.stage, domain.StageSkipped, "timing did not complete", pl.now())
			}
			ready = Readiness{Valid: false, Issues: []domain.Issue{pc.issue(domain.StageTiming, "", domain.SeverityError, "timing_failed", "timing did not complete")}, Prepared: p}
			break
		}
	}
	pl.finalize(pc)
	return ready
}

// runStage runs fn under a recover guard so no panic crosses the stage boundary.
func (pl *Pipeline) runStage(ctx context.Context, pc *ProjectContext, stage domain.Stage, fn stageFunc) (status domain.StageStatus) {
	p := pc.Project
	p.Progress.Set(stage, domain.StageInProgress, "", pl.now())
	started := pl.now()
	defer func() {
		if r := recover(); r != nil {
			pc.Logger.Error().Str("stage", string(stage)).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("pipeline: stage panicked")
			status = domain.StageError
			p.Progress.Set(stage, status, fmt.Sprintf("internal error: %v", r), pl.now())
		}
	}()
	status, msg := fn(ctx, pc)
	if status == domain.StageSkipped && msg == "" {
		msg = "skipped"
	}
	p.Progress.Set(stage, status, msg, pl.now())
	event := pc.Logger.Info()
	if status == domain.StageError {
		event = pc.Logger.Warn()
	}
	event.Str("stage", string(stage)).Str("status", string(status)).Str("message", msg).Dur("took", pl.now().Sub(started)).Msg("pipeline: stage finished")
	return status
}

// finalize derives the project status from the mandatory stages.
func (pl *Pipeline) finalize(pc *ProjectContext) {
	p := pc.Project
	p.RefreshAssets()
	if p.Progress.MandatorySettled() {
		p.Status = domain.ProjectReady
	} else {
		p.Status = domain.ProjectError
	}
	p.UpdatedAt = pl.now()
	pc.Logger.Info().Str("status", string(p.Status)).Int("failures", len(p.Progress.ServiceFailures)).Msg("pipeline: run finished")
}
