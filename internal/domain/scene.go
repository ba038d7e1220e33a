package domain

import "strings"

// SceneType classifies the narrative role of a scene.
type SceneType string

const (
	SceneHook        SceneType = "hook"
	SceneProblem     SceneType = "problem"
	SceneSolution    SceneType = "solution"
	SceneBenefit     SceneType = "benefit"
	SceneFeature     SceneType = "feature"
	SceneTestimonial SceneType = "testimonial"
	SceneProduct     SceneType = "product"
	SceneCTA         SceneType = "cta"
)

// NormalizeSceneType maps free-form parser output onto a known scene type.
func NormalizeSceneType(v string) SceneType {
	switch t := SceneType(strings.ToLower(strings.TrimSpace(v))); t {
	case SceneHook, SceneProblem, SceneSolution, SceneBenefit, SceneFeature, SceneTestimonial, SceneProduct, SceneCTA:
		return t
	case "call_to_action", "call-to-action", "calltoaction":
		return SceneCTA
	case "intro", "opening":
		return SceneHook
	default:
		return SceneType(strings.ToLower(strings.TrimSpace(v)))
	}
}

// BackgroundKind selects which media fills the scene.
type BackgroundKind string

const (
	BackgroundImage BackgroundKind = "image"
	BackgroundVideo BackgroundKind = "video"
)

// Background holds the one active background asset of a scene.
type Background struct {
	Kind  BackgroundKind `json:"kind"`
	Asset AssetRef       `json:"asset"`
}

// Rect is a resolved pixel rectangle on the canvas.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width && r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// Placement is a derived overlay position.
type Placement struct {
	Rect    Rect   `json:"rect"`
	Anchor  string `json:"anchor"`
	Flipped bool   `json:"flipped,omitempty"`
}

// TextOverlay is on-screen copy for a scene.
type TextOverlay struct {
	Enabled   bool       `json:"enabled"`
	Content   string     `json:"content"`
	Placement *Placement `json:"placement,omitempty"`
}

// ImageOverlay is a product or logo layer.
type ImageOverlay struct {
	Enabled        bool       `json:"enabled"`
	Asset          AssetRef   `json:"asset"`
	Placement      *Placement `json:"placement,omitempty"`
	DisabledReason string     `json:"disabledReason,omitempty"`
}

// Overlays groups the optional layers drawn above the background.
type Overlays struct {
	Text    *TextOverlay  `json:"text,omitempty"`
	Product *ImageOverlay `json:"product,omitempty"`
	Logo    *ImageOverlay `json:"logo,omitempty"`
}

// SoundCue is one audio cue, optionally resolved to an asset.
type SoundCue struct {
	Name  string    `json:"name"`
	Asset *AssetRef `json:"asset,omitempty"`
}

// SoundDesign lists the cues attached to a scene.
type SoundDesign struct {
	TransitionIn  *SoundCue `json:"transitionIn,omitempty"`
	TransitionOut *SoundCue `json:"transitionOut,omitempty"`
	Ambience      *SoundCue `json:"ambience,omitempty"`
	Emphasis      *SoundCue `json:"emphasis,omitempty"`
}

// Cues returns the non-nil cues in a stable order.
func (s *SoundDesign) Cues() []*SoundCue {
	if s == nil {
		return nil
	}
	var out []*SoundCue
	for _, c := range []*SoundCue{s.TransitionIn, s.TransitionOut, s.Ambience, s.Emphasis} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// LayerKind identifies a composition layer.
type LayerKind string

const (
	LayerText    LayerKind = "text"
	LayerProduct LayerKind = "product"
	LayerLogo    LayerKind = "logo"
)

// CompositionLayer is one overlay directive for the renderer.
type CompositionLayer struct {
	Kind      LayerKind `json:"kind"`
	Placement Placement `json:"placement"`
	Z         int       `json:"z"`
}

// CompositionInstructions are the final per-scene directives consumed by the renderer.
type CompositionInstructions struct {
	CameraMotion string             `json:"cameraMotion"`
	Layers       []CompositionLayer `json:"layers"`
}

// Scene is one timed segment of the video.
type Scene struct {
	ID              string    `json:"id"`
	Order           int       `json:"order"`
	Type            SceneType `json:"type"`
	Narration       string    `json:"narration"`
	VisualDirection string    `json:"visualDirection"`
	SearchQuery     string    `json:"searchQuery,omitempty"`
	FallbackQuery   string    `json:"fallbackQuery,omitempty"`
	OverlayText     string    `json:"overlayText,omitempty"`
	PreferVideo     bool      `json:"preferVideo,omitempty"`

	// Source material requirements checked by quality scoring.
	TextOverlayRequired    bool `json:"textOverlayRequired,omitempty"`
	SubjectWithEnvironment bool `json:"subjectWithEnvironment,omitempty"`

	Duration    float64                  `json:"duration"`
	Background  *Background              `json:"background,omitempty"`
	Overlays    Overlays                 `json:"overlays"`
	Quality     *QualityScore            `json:"quality,omitempty"`
	Composition *CompositionInstructions `json:"composition,omitempty"`
	Sound       *SoundDesign             `json:"sound,omitempty"`
}

// SetImage makes img the active background, replacing any video.
func (s *Scene) SetImage(img AssetRef) {
	img.Kind = AssetKindImage
	s.Background = &Background{Kind: BackgroundImage, Asset: img}
}

// SetVideo makes v the active background, replacing any image.
func (s *Scene) SetVideo(v AssetRef) {
	v.Kind = AssetKindVideo
	s.Background = &Background{Kind: BackgroundVideo, Asset: v}
}

// InvalidateDerived drops data computed from the scene's current assets.
func (s *Scene) InvalidateDerived() {
	s.Quality = nil
	s.Composition = nil
}

// ContextText is the free text describing what the scene is about.
func (s Scene) ContextText() string {
	return strings.Join([]string{string(s.Type), s.VisualDirection, s.SearchQuery, s.Narration}, " ")
}
