package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus enumerates the project lifecycle.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectGenerating ProjectStatus = "generating"
	ProjectReady      ProjectStatus = "ready"
	ProjectError      ProjectStatus = "error"
)

// Canvas is the output frame size in pixels.
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultCanvas is a landscape 1080p frame.
var DefaultCanvas = Canvas{Width: 1920, Height: 1080}

// AspectRatio returns the canvas ratio as "w:h" in lowest terms.
func (c Canvas) AspectRatio() string {
	if c.Width <= 0 || c.Height <= 0 {
		return "16:9"
	}
	g := gcd(c.Width, c.Height)
	return fmt.Sprintf("%d:%d", c.Width/g, c.Height/g)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// BrandAssetKind enumerates registry entries.
type BrandAssetKind string

const (
	BrandLogo      BrandAssetKind = "logo"
	BrandPhoto     BrandAssetKind = "photo"
	BrandVideo     BrandAssetKind = "video"
	BrandWatermark BrandAssetKind = "watermark"
)

// BrandAsset is one uploaded brand asset with its matching vocabulary.
type BrandAsset struct {
	ID       string         `json:"id"`
	Kind     BrandAssetKind `json:"kind"`
	URL      string         `json:"url"`
	Width    int            `json:"width,omitempty"`
	Height   int            `json:"height,omitempty"`
	Keywords []string       `json:"keywords,omitempty"`
	Entities []string       `json:"entities,omitempty"`
	Contexts []string       `json:"contexts,omitempty"`
}

// BrandKit is the brand material attached to a project.
type BrandKit struct {
	Name       string       `json:"name,omitempty"`
	Guidelines string       `json:"guidelines,omitempty"`
	Palette    []string     `json:"palette,omitempty"`
	Assets     []BrandAsset `json:"assets,omitempty"`
}

// HasGuidelines reports whether brand context is available for scoring.
func (b BrandKit) HasGuidelines() bool {
	return strings.TrimSpace(b.Guidelines) != "" || len(b.Palette) > 0
}

// ProjectAssets aggregates project-level and per-scene assets.
type ProjectAssets struct {
	Voiceover *AssetRef  `json:"voiceover,omitempty"`
	Music     *AssetRef  `json:"music,omitempty"`
	Images    []AssetRef `json:"images"`
	Videos    []AssetRef `json:"videos"`
}

// VideoProject owns all scenes and the state of their production.
type VideoProject struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Status        ProjectStatus `json:"status"`
	Audience      string        `json:"audience,omitempty"`
	BrandSafety   []string      `json:"brandSafety,omitempty"`
	Locale        string        `json:"locale,omitempty"`
	Voice         string        `json:"voice,omitempty"`
	Mood          string        `json:"mood,omitempty"`
	Canvas        Canvas        `json:"canvas"`
	Product       *AssetRef     `json:"product,omitempty"`
	Brand         BrandKit      `json:"brand"`
	Scenes        []Scene       `json:"scenes"`
	TotalDuration float64       `json:"totalDuration"`
	Assets        ProjectAssets `json:"assets"`
	Progress      Progress      `json:"progress"`
	History       History       `json:"history"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// SceneInput is one entry produced by the external script parser.
type SceneInput struct {
	Type            string `json:"type"`
	Narration       string `json:"narration"`
	VisualDirection string `json:"visualDirection"`
	SearchQuery     string `json:"searchQuery"`
	FallbackQuery   string `json:"fallbackQuery"`
	OverlayText     string `json:"overlayText,omitempty"`
	PreferVideo     bool   `json:"preferVideo,omitempty"`

	TextOverlayRequired    bool `json:"textOverlayRequired,omitempty"`
	SubjectWithEnvironment bool `json:"subjectWithEnvironment,omitempty"`
}

// NewProject builds a draft project from parsed scenes. Scenes are created
// exactly once here and only decorated afterwards.
func NewProject(title string, inputs []SceneInput, now time.Time) (*VideoProject, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one scene is required", ErrInvalidProject)
	}
	p := &VideoProject{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Status:    ProjectDraft,
		Canvas:    DefaultCanvas,
		Progress:  NewProgress(),
		Assets:    ProjectAssets{Images: []AssetRef{}, Videos: []AssetRef{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Scenes = make([]Scene, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Type) == "" {
			return nil, fmt.Errorf("%w: scene %d has no type", ErrInvalidScene, i)
		}
		p.Scenes = append(p.Scenes, Scene{
			ID:                     uuid.NewString(),
			Order:                  i,
			Type:                   NormalizeSceneType(in.Type),
			Narration:              strings.TrimSpace(in.Narration),
			VisualDirection:        strings.TrimSpace(in.VisualDirection),
			SearchQuery:            strings.TrimSpace(in.SearchQuery),
			FallbackQuery:          strings.TrimSpace(in.FallbackQuery),
			OverlayText:            strings.TrimSpace(in.OverlayText),
			PreferVideo:            in.PreferVideo,
			TextOverlayRequired:    in.TextOverlayRequired,
			SubjectWithEnvironment: in.SubjectWithEnvironment,
		})
	}
	return p, nil
}

// SceneByID returns the scene with the given id.
func (p *VideoProject) SceneByID(id string) (*Scene, error) {
	for i := range p.Scenes {
		if p.Scenes[i].ID == id {
			return &p.Scenes[i], nil
		}
	}
	return nil, fmt.Errorf("scene %s: %w", id, ErrNotFound)
}

// SumDurations returns the sum of scene durations.
func (p *VideoProject) SumDurations() float64 {
	var total float64
	for _, s := range p.Scenes {
		total += s.Duration
	}
	return total
}

// RefreshAssets rebuilds the aggregated image and video lists from the scenes.
func (p *VideoProject) RefreshAssets() {
	p.Assets.Images = []AssetRef{}
	p.Assets.Videos = []AssetRef{}
	for _, s := range p.Scenes {
		if s.Background == nil {
			continue
		}
		switch s.Background.Kind {
		case BackgroundImage:
			p.Assets.Images = append(p.Assets.Images, s.Background.Asset)
		case BackgroundVideo:
			p.Assets.Videos = append(p.Assets.Videos, s.Background.Asset)
		}
	}
}

// RecordFailure appends to the failure ledger. Entries are never removed.
func (p *VideoProject) RecordFailure(f ServiceFailure) {
	p.Progress.ServiceFailures = append(p.Progress.ServiceFailures, f)
}

// RecordIssue appends a non-fatal issue.
func (p *VideoProject) RecordIssue(issue Issue) {
	p.Progress.Issues = append(p.Progress.Issues, issue)
}
