// Package placement resolves overlay rectangles on the canvas and keeps
// successive overlays from covering each other.
package placement

import (
	"math"

	"studio/internal/domain"
)

// Size is a named overlay width relative to the canvas width.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeXLarge Size = "xlarge"
)

var sizePercent = map[Size]float64{
	SizeSmall:  15,
	SizeMedium: 25,
	SizeLarge:  35,
	SizeXLarge: 50,
}

// Anchor names where a rectangle sits on the canvas.
type Anchor string

const (
	TopLeft         Anchor = "top-left"
	TopCenter       Anchor = "top-center"
	TopRight        Anchor = "top-right"
	CenterLeft      Anchor = "center-left"
	Center          Anchor = "center"
	CenterRight     Anchor = "center-right"
	BottomLeft      Anchor = "bottom-left"
	BottomCenter    Anchor = "bottom-center"
	BottomRight     Anchor = "bottom-right"
	LowerThirdLeft  Anchor = "lower-third-left"
	LowerThirdRight Anchor = "lower-third-right"
	UpperThirdLeft  Anchor = "upper-third-left"
	UpperThirdRight Anchor = "upper-third-right"
	Custom          Anchor = "custom"
)

var opposite = map[Anchor]Anchor{
	TopLeft:         BottomRight,
	TopCenter:       BottomCenter,
	TopRight:        BottomLeft,
	CenterLeft:      CenterRight,
	Center:          Center,
	CenterRight:     CenterLeft,
	BottomLeft:      TopRight,
	BottomCenter:    TopCenter,
	BottomRight:     TopLeft,
	LowerThirdLeft:  UpperThirdRight,
	LowerThirdRight: UpperThirdLeft,
	UpperThirdLeft:  LowerThirdRight,
	UpperThirdRight: LowerThirdLeft,
	Custom:          Custom,
}

// Opposite returns the anchor diagonally across the canvas centre.
func Opposite(a Anchor) Anchor {
	if o, ok := opposite[a]; ok {
		return o
	}
	return Custom
}

// DefaultMargin is the safe-area inset in pixels.
const DefaultMargin = 40

// Request describes one overlay to place.
type Request struct {
	Size Size `json:"size,omitempty" yaml:"size"`
	// WidthPercent overrides Size when positive.
	WidthPercent float64 `json:"widthPercent,omitempty" yaml:"width_percent"`
	// AspectRatio is width/height of the overlay asset; 1 when unknown.
	AspectRatio      float64 `json:"aspectRatio,omitempty" yaml:"aspect_ratio"`
	MaxWidthPercent  float64 `json:"maxWidthPercent,omitempty" yaml:"max_width_percent"`
	MaxHeightPercent float64 `json:"maxHeightPercent,omitempty" yaml:"max_height_percent"`
	Anchor           Anchor  `json:"anchor,omitempty" yaml:"anchor"`
	// CenterX and CenterY are percentages used with the custom anchor.
	CenterX float64 `json:"centerX,omitempty" yaml:"center_x"`
	CenterY float64 `json:"centerY,omitempty" yaml:"center_y"`
}

// Layout is a canvas with its safe-area margin.
type Layout struct {
	Canvas domain.Canvas
	Margin int
}

// NewLayout returns a layout for c with the default margin.
func NewLayout(c domain.Canvas) Layout {
	return Layout{Canvas: c, Margin: DefaultMargin}
}

func (l Layout) dimensions(req Request) (float64, float64) {
	cw, ch := float64(l.Canvas.Width), float64(l.Canvas.Height)
	pct := req.WidthPercent
	if pct <= 0 {
		pct = sizePercent[req.Size]
	}
	if pct <= 0 {
		pct = sizePercent[SizeMedium]
	}
	ratio := req.AspectRatio
	if ratio <= 0 {
		ratio = 1
	}
	w := cw * pct / 100
	h := w / ratio
	if req.MaxWidthPercent > 0 && w > cw*req.MaxWidthPercent/100 {
		w = cw * req.MaxWidthPercent / 100
		h = w / ratio
	}
	if req.MaxHeightPercent > 0 && h > ch*req.MaxHeightPercent/100 {
		h = ch * req.MaxHeightPercent / 100
		w = h * ratio
	}

	// Fit inside the safe area, preserving aspect.
	availW := cw - 2*float64(l.Margin)
	availH := ch - 2*float64(l.Margin)
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}
	if w > availW {
		w = availW
		h = w / ratio
	}
	if h > availH {
		h = availH
		w = h * ratio
	}
	return w, h
}

func (l Layout) origin(anchor Anchor, req Request, w, h float64) (float64, float64) {
	cw, ch := float64(l.Canvas.Width), float64(l.Canvas.Height)
	m := float64(l.Margin)
	left, hcenter, right := m, (cw-w)/2, cw-m-w
	top, vcenter, bottom := m, (ch-h)/2, ch-m-h
	lowerThird := ch*2/3 + (ch/3-h)/2
	upperThird := (ch/3 - h) / 2

	switch anchor {
	case TopLeft:
		return left, top
	case TopCenter:
		return hcenter, top
	case TopRight:
		return right, top
	case CenterLeft:
		return left, vcenter
	case Center:
		return hcenter, vcenter
	case CenterRight:
		return right, vcenter
	case BottomLeft:
		return left, bottom
	case BottomCenter:
		return hcenter, bottom
	case LowerThirdLeft:
		return left, lowerThird
	case LowerThirdRight:
		return right, lowerThird
	case UpperThirdLeft:
		return left, upperThird
	case UpperThirdRight:
		return right, upperThird
	case Custom:
		return cw*req.CenterX/100 - w/2, ch*req.CenterY/100 - h/2
	default:
		return right, bottom
	}
}

func (l Layout) clamp(r domain.Rect) domain.Rect {
	m := l.Margin
	maxX := l.Canvas.Width - m - r.Width
	maxY := l.Canvas.Height - m - r.Height
	r.X = clampInt(r.X, m, maxX)
	r.Y = clampInt(r.Y, m, maxY)
	return r
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolve places one overlay. When the anchored rect overlaps any occupied
// rect it is mirrored through the canvas centre. A rect that maps onto itself,
// such as a centred one, keeps its anchor and is not marked flipped.
func (l Layout) Resolve(req Request, occupied []domain.Rect) domain.Placement {
	anchor := req.Anchor
	if anchor == "" {
		anchor = BottomRight
	}
	w, h := l.dimensions(req)
	x, y := l.origin(anchor, req, w, h)
	rect := l.clamp(domain.Rect{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Floor(w)),
		Height: int(math.Floor(h)),
	})

	p := domain.Placement{Rect: rect, Anchor: string(anchor)}
	if !overlapsAny(rect, occupied) {
		return p
	}
	mirrored := l.clamp(domain.Rect{
		X:      l.Canvas.Width - rect.X - rect.Width,
		Y:      l.Canvas.Height - rect.Y - rect.Height,
		Width:  rect.Width,
		Height: rect.Height,
	})
	if mirrored == rect {
		return p
	}
	return domain.Placement{Rect: mirrored, Anchor: string(Opposite(anchor)), Flipped: true}
}

// PlaceAll resolves requests in order, each seeing the rects placed before it.
func (l Layout) PlaceAll(reqs []Request, occupied []domain.Rect) []domain.Placement {
	taken := append([]domain.Rect(nil), occupied...)
	out := make([]domain.Placement, 0, len(reqs))
	for _, req := range reqs {
		p := l.Resolve(req, taken)
		taken = append(taken, p.Rect)
		out = append(out, p)
	}
	return out
}

func overlapsAny(r domain.Rect, occupied []domain.Rect) bool {
	for _, o := range occupied {
		if r.Intersects(o) {
			return true
		}
	}
	return false
}
