package domain

import "time"

// Stage names one pipeline stage.
type Stage string

const (
	StageTiming        Stage = "timing"
	StageVoiceover     Stage = "voiceover"
	StageImages        Stage = "images"
	StageVideos        Stage = "videos"
	StageMusic         Stage = "music"
	StageSoundDesign   Stage = "sound_design"
	StageSceneAnalysis Stage = "scene_analysis"
	StageComposition   Stage = "composition"
	StageAssetCaching  Stage = "asset_caching"
	StageRenderPrep    Stage = "render_prep"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageTiming,
	StageVoiceover,
	StageImages,
	StageVideos,
	StageMusic,
	StageSoundDesign,
	StageSceneAnalysis,
	StageComposition,
	StageAssetCaching,
	StageRenderPrep,
}

var mandatoryStages = map[Stage]bool{
	StageTiming:       true,
	StageVoiceover:    true,
	StageImages:       true,
	StageComposition:  true,
	StageAssetCaching: true,
	StageRenderPrep:   true,
}

// IsMandatory reports whether the project cannot become ready without the stage.
func (s Stage) IsMandatory() bool {
	return mandatoryStages[s]
}

// StageStatus enumerates the lifecycle of one stage.
type StageStatus string

const (
	StagePending    StageStatus = "pending"
	StageInProgress StageStatus = "in_progress"
	StageComplete   StageStatus = "complete"
	StageError      StageStatus = "error"
	StageSkipped    StageStatus = "skipped"
)

// StageProgress is the tracked state of one stage.
type StageProgress struct {
	Stage     Stage       `json:"stage"`
	Status    StageStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	Mandatory bool        `json:"mandatory"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Settled reports whether the stage allows the project to become ready.
func (s StageProgress) Settled() bool {
	return s.Status == StageComplete || (s.Status == StageSkipped && s.Message != "")
}

// ServiceFailure is one append-only entry in the failure ledger.
type ServiceFailure struct {
	Service      string    `json:"service"`
	Timestamp    time.Time `json:"timestamp"`
	Error        string    `json:"error"`
	FallbackUsed bool      `json:"fallbackUsed"`
	Stage        Stage     `json:"stage,omitempty"`
	SceneID      string    `json:"sceneId,omitempty"`
}

// Severity grades an issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is a non-exceptional problem recorded while processing a project.
type Issue struct {
	Stage    Stage     `json:"stage"`
	SceneID  string    `json:"sceneId,omitempty"`
	Severity Severity  `json:"severity"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Progress aggregates stage state and the project's failure ledger.
type Progress struct {
	Stages          []StageProgress  `json:"stages"`
	Errors          []string         `json:"errors"`
	ServiceFailures []ServiceFailure `json:"serviceFailures"`
	Issues          []Issue          `json:"issues"`
}

// NewProgress returns a progress ledger with every stage pending.
func NewProgress() Progress {
	p := Progress{Stages: make([]StageProgress, 0, len(Stages))}
	for _, s := range Stages {
		p.Stages = append(p.Stages, StageProgress{Stage: s, Status: StagePending, Mandatory: s.IsMandatory()})
	}
	return p
}

// BeginRun resets every stage to pending for a new run. The error, failure
// and issue ledgers are kept.
func (p *Progress) BeginRun() {
	fresh := NewProgress()
	p.Stages = fresh.Stages
}

// Stage returns the tracked state for s, adding it when missing.
func (p *Progress) Stage(s Stage) *StageProgress {
	for i := range p.Stages {
		if p.Stages[i].Stage == s {
			return &p.Stages[i]
		}
	}
	p.Stages = append(p.Stages, StageProgress{Stage: s, Status: StagePending, Mandatory: s.IsMandatory()})
	return &p.Stages[len(p.Stages)-1]
}

// Set updates a stage status and message.
func (p *Progress) Set(s Stage, status StageStatus, message string, now time.Time) {
	st := p.Stage(s)
	st.Status = status
	st.Message = message
	st.UpdatedAt = now
	if status == StageError && message != "" {
		p.Errors = append(p.Errors, string(s)+": "+message)
	}
}

// MandatorySettled reports whether every mandatory stage is complete or skipped with a reason.
func (p *Progress) MandatorySettled() bool {
	for _, s := range Stages {
		if !s.IsMandatory() {
			continue
		}
		if !p.Stage(s).Settled() {
			return false
		}
	}
	return true
}
