// Package quality scores generated visuals and recommends whether to keep,
// review or regenerate them.
package quality

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

// Version identifies the scoring rules.
const Version = "v3"

// Ceilings applied by overrides.
const (
	TextMissingCeiling = 40
	EnvironmentCeiling = 50
)

// Override labels recorded on the score.
const (
	OverrideTextMissing = "text_required_missing"
	OverrideEnvironment = "environment_required_missing"
)

// Weights of the four sub-scores. They sum to 1.
type Weights struct {
	Technical       float64 `yaml:"technical"`
	ContentMatch    float64 `yaml:"content_match"`
	BrandCompliance float64 `yaml:"brand_compliance"`
	Composition     float64 `yaml:"composition"`
}

// DefaultWeights favour content match.
var DefaultWeights = Weights{Technical: 0.20, ContentMatch: 0.40, BrandCompliance: 0.25, Composition: 0.15}

// Thresholds map composite scores to recommendations.
type Thresholds struct {
	Approved    int `yaml:"approved"`
	NeedsReview int `yaml:"needs_review"`
	Regenerate  int `yaml:"regenerate"`
}

// DefaultThresholds returns the standard cut-offs.
var DefaultThresholds = Thresholds{Approved: 80, NeedsReview: 65, Regenerate: 45}

// Recommend maps a composite score to a recommendation. A critical artifact
// always fails.
func (t Thresholds) Recommend(composite int, critical bool) domain.Recommendation {
	switch {
	case critical:
		return domain.RecommendCriticalFail
	case composite >= t.Approved:
		return domain.RecommendApproved
	case composite >= t.NeedsReview:
		return domain.RecommendNeedsReview
	case composite >= t.Regenerate:
		return domain.RecommendRegenerate
	default:
		return domain.RecommendCriticalFail
	}
}

// AnalysisRequest is sent to the vision model.
type AnalysisRequest struct {
	ImageURL    string
	ContentType string
	Data        []byte
	Prompt      string
}

// Analyzer returns the raw text response of a vision model.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}

// Capabilities toggles optional scoring inputs.
type Capabilities struct {
	BrandContext bool
}

// Target is the visual and the brief it was produced for.
type Target struct {
	Asset                  domain.AssetRef
	SceneType              domain.SceneType
	Narration              string
	VisualDirection        string
	TextOverlayRequired    bool
	SubjectWithEnvironment bool
	BrandGuidelines        string
}

// Engine scores visuals.
type Engine struct {
	analyzer   Analyzer
	weights    Weights
	thresholds Thresholds
	logger     zerolog.Logger
	now        func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithWeights overrides the default weights.
func WithWeights(w Weights) Option { return func(e *Engine) { e.weights = w } }

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option { return func(e *Engine) { e.thresholds = t } }

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithClock sets the time source.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine builds an engine. A nil analyzer makes every score not_analyzed.
func NewEngine(analyzer Analyzer, opts ...Option) *Engine {
	e := &Engine{
		analyzer:   analyzer,
		weights:    DefaultWeights,
		thresholds: DefaultThresholds,
		logger:     zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the active cut-offs.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

func (e *Engine) notAnalyzed(t Target, reason string) *domain.QualityScore {
	return &domain.QualityScore{
		State:    domain.AnalysisNotAnalyzed,
		Version:  Version,
		Reason:   reason,
		AssetURL: t.Asset.URL,
		ScoredAt: e.now().UTC(),
	}
}

// Score analyses one visual. It never returns a fabricated score: when the
// analyzer cannot produce a valid result the state is not_analyzed.
func (e *Engine) Score(ctx context.Context, t Target, caps Capabilities) *domain.QualityScore {
	if e.analyzer == nil {
		return e.notAnalyzed(t, "analyzer unavailable")
	}
	if t.Asset.IsZero() {
		return e.notAnalyzed(t, "no visual to analyze")
	}
	raw, err := e.analyzer.Analyze(ctx, AnalysisRequest{
		ImageURL:    t.Asset.URL,
		ContentType: t.Asset.ContentType,
		Data:        t.Asset.Data,
		Prompt:      BuildPrompt(t, caps),
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("asset_url", t.Asset.URL).Msg("quality analysis failed")
		return e.notAnalyzed(t, "analyzer error: "+err.Error())
	}
	a, err := Decode(raw, caps.BrandContext)
	if err != nil {
		e.logger.Warn().Err(err).Str("asset_url", t.Asset.URL).Msg("quality analysis rejected")
		return e.notAnalyzed(t, err.Error())
	}
	return e.Evaluate(t, a, caps)
}

// Evaluate turns a validated analysis into a score.
func (e *Engine) Evaluate(t Target, a Analysis, caps Capabilities) *domain.QualityScore {
	composite := e.weighted(a, caps)

	var overrides []string
	if t.TextOverlayRequired && !a.TextDetected && composite > TextMissingCeiling {
		composite = TextMissingCeiling
		overrides = append(overrides, OverrideTextMissing)
	}
	if t.SubjectWithEnvironment && (a.Framing == FramingExtremeCloseUp || !a.EnvironmentVisible) && composite > EnvironmentCeiling {
		composite = EnvironmentCeiling
		overrides = append(overrides, OverrideEnvironment)
	}

	critical := false
	artifacts := make([]domain.Artifact, 0, len(a.Artifacts))
	for _, art := range a.Artifacts {
		if art.Severity == "critical" {
			critical = true
		}
		artifacts = append(artifacts, art)
	}

	rec := e.thresholds.Recommend(composite, critical)
	state := domain.AnalysisAnalyzedHigh
	if rec.NeedsRegeneration() {
		state = domain.AnalysisAnalyzedLow
	}
	score := composite
	sub := &domain.SubScores{
		Technical:    a.Technical,
		ContentMatch: a.ContentMatch,
		Composition:  a.Composition,
	}
	if caps.BrandContext && a.BrandCompliance != nil {
		v := *a.BrandCompliance
		sub.BrandCompliance = &v
	}
	return &domain.QualityScore{
		State:          state,
		Version:        Version,
		SubScores:      sub,
		Composite:      &score,
		Recommendation: rec,
		Issues:         a.Issues,
		Overrides:      overrides,
		Artifacts:      artifacts,
		AssetURL:       t.Asset.URL,
		ScoredAt:       e.now().UTC(),
	}
}

// weighted combines sub-scores. Without brand context the brand weight is
// spread proportionally over the other three.
func (e *Engine) weighted(a Analysis, caps Capabilities) int {
	w := e.weights
	if !caps.BrandContext || a.BrandCompliance == nil {
		rest := w.Technical + w.ContentMatch + w.Composition
		if rest <= 0 {
			return 0
		}
		sum := float64(a.Technical)*w.Technical + float64(a.ContentMatch)*w.ContentMatch + float64(a.Composition)*w.Composition
		return int(math.Round(sum / rest))
	}
	total := w.Technical + w.ContentMatch + w.BrandCompliance + w.Composition
	if total <= 0 {
		return 0
	}
	sum := float64(a.Technical)*w.Technical +
		float64(a.ContentMatch)*w.ContentMatch +
		float64(*a.BrandCompliance)*w.BrandCompliance +
		float64(a.Composition)*w.Composition
	return int(math.Round(sum / total))
}

// BuildPrompt renders the instruction sent with the visual.
func BuildPrompt(t Target, caps Capabilities) string {
	var b strings.Builder
	b.WriteString("You are reviewing a frame for a short promotional video. Respond with one JSON object only.\n")
	fmt.Fprintf(&b, "Scene type: %s\n", t.SceneType)
	if t.VisualDirection != "" {
		fmt.Fprintf(&b, "Visual direction: %s\n", t.VisualDirection)
	}
	if t.Narration != "" {
		fmt.Fprintf(&b, "Narration: %s\n", t.Narration)
	}
	if caps.BrandContext && strings.TrimSpace(t.BrandGuidelines) != "" {
		fmt.Fprintf(&b, "Brand guidelines: %s\n", t.BrandGuidelines)
	}
	b.WriteString(`Fields: technical, contentMatch, composition`)
	if caps.BrandContext {
		b.WriteString(`, brandCompliance`)
	}
	b.WriteString(` (integers 0-100); textDetected (bool); framing (one of extreme_close_up, close_up, medium, wide, extreme_wide); environmentVisible (bool); artifacts (array of {type, severity: low|medium|high|critical}); issues (array of strings).`)
	return b.String()
}

// IsInvalidAnalysis reports whether err came from schema validation.
func IsInvalidAnalysis(err error) bool {
	return errors.Is(err, ErrInvalidAnalysis)
}
