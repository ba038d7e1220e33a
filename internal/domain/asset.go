package domain

import "strings"

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindImage     AssetKind = "image"
	AssetKindVideo     AssetKind = "video"
	AssetKindMusic     AssetKind = "music"
	AssetKindVoiceover AssetKind = "voiceover"
	AssetKindSFX       AssetKind = "sfx"
	AssetKindLogo      AssetKind = "logo"
	AssetKindProduct   AssetKind = "product"
)

// Provenance records where an asset came from.
type Provenance string

const (
	ProvenanceAI       Provenance = "ai"
	ProvenanceStock    Provenance = "stock"
	ProvenanceUploaded Provenance = "uploaded"
)

// AssetMeta carries the descriptive metadata used by the validation gate.
type AssetMeta struct {
	Tags        []string `json:"tags,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Uploader    string   `json:"uploader,omitempty"`
}

// Text joins every descriptive field into one searchable string.
func (m AssetMeta) Text() string {
	parts := make([]string, 0, len(m.Tags)+3)
	parts = append(parts, m.Tags...)
	parts = append(parts, m.Title, m.Description, m.Uploader)
	return strings.Join(parts, " ")
}

// AssetRef points at a produced artifact. Data holds inline bytes for assets
// that still need to be uploaded to durable storage; it is persisted with the
// project until the upload succeeds.
type AssetRef struct {
	Kind        AssetKind  `json:"kind"`
	URL         string     `json:"url"`
	Provenance  Provenance `json:"provenance"`
	Source      string     `json:"source"`
	ContentType string     `json:"contentType,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	Duration    float64    `json:"duration,omitempty"`
	Meta        *AssetMeta `json:"meta,omitempty"`
	Durable     bool       `json:"durable"`
	Data        []byte     `json:"data,omitempty"`
}

// AspectRatio returns width/height, defaulting to 1 when dimensions are unknown.
func (a AssetRef) AspectRatio() float64 {
	if a.Width <= 0 || a.Height <= 0 {
		return 1
	}
	return float64(a.Width) / float64(a.Height)
}

// IsZero reports whether the reference points at nothing.
func (a AssetRef) IsZero() bool {
	return strings.TrimSpace(a.URL) == "" && len(a.Data) == 0
}

// GenerationRequest is the normalized request handed to every generation provider.
type GenerationRequest struct {
	ProjectID     string    `json:"projectId"`
	SceneID       string    `json:"sceneId,omitempty"`
	Kind          AssetKind `json:"kind"`
	Prompt        string    `json:"prompt,omitempty"`
	Query         string    `json:"query,omitempty"`
	FallbackQuery string    `json:"fallbackQuery,omitempty"`
	Text          string    `json:"text,omitempty"`
	Mood          string    `json:"mood,omitempty"`
	AspectRatio   string    `json:"aspectRatio,omitempty"`
	Duration      float64   `json:"duration,omitempty"`
	Locale        string    `json:"locale,omitempty"`
	Voice         string    `json:"voice,omitempty"`
}
