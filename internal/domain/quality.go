package domain

import "time"

// AnalysisState distinguishes a missing analysis from a real low score.
type AnalysisState string

const (
	AnalysisNotAnalyzed  AnalysisState = "not_analyzed"
	AnalysisAnalyzedLow  AnalysisState = "analyzed_low"
	AnalysisAnalyzedHigh AnalysisState = "analyzed_high"
)

// Recommendation is the action suggested by a quality score.
type Recommendation string

const (
	RecommendApproved     Recommendation = "approved"
	RecommendNeedsReview  Recommendation = "needs_review"
	RecommendRegenerate   Recommendation = "regenerate"
	RecommendCriticalFail Recommendation = "critical_fail"
)

// NeedsRegeneration reports whether the visual should be replaced.
func (r Recommendation) NeedsRegeneration() bool {
	return r == RecommendRegenerate || r == RecommendCriticalFail
}

// SubScores are the four weighted components. BrandCompliance is nil when no
// brand context was available to assess it.
type SubScores struct {
	Technical       int  `json:"technical"`
	ContentMatch    int  `json:"contentMatch"`
	BrandCompliance *int `json:"brandCompliance,omitempty"`
	Composition     int  `json:"composition"`
}

// Artifact is a defect detected in a visual.
type Artifact struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// QualityScore is the outcome of scoring one visual.
type QualityScore struct {
	State          AnalysisState  `json:"state"`
	Version        string         `json:"version"`
	SubScores      *SubScores     `json:"subScores,omitempty"`
	Composite      *int           `json:"composite,omitempty"`
	Recommendation Recommendation `json:"recommendation,omitempty"`
	Issues         []string       `json:"issues,omitempty"`
	Overrides      []string       `json:"overrides,omitempty"`
	Artifacts      []Artifact     `json:"artifacts,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	AssetURL       string         `json:"assetUrl,omitempty"`
	ScoredAt       time.Time      `json:"scoredAt"`
}

// Analyzed reports whether a real analysis produced the score.
func (q *QualityScore) Analyzed() bool {
	return q != nil && q.State != AnalysisNotAnalyzed && q.Composite != nil
}
