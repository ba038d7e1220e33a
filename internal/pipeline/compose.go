package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"studio/internal/domain"
	"studio/internal/placement"
)

// ctaWords is the number of narration words used for a generated CTA headline.
const ctaWords = 6

func (pl *Pipeline) stageComposition(_ context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	p := pc.Project
	layers := 0
	for i := range p.Scenes {
		pl.composeScene(pc, &p.Scenes[i])
		layers += len(p.Scenes[i].Composition.Layers)
		if p.Scenes[i].Background == nil {
			pc.issue(domain.StageComposition, p.Scenes[i].ID, domain.SeverityWarning, "no_background", "scene composed without a background")
		}
	}
	return domain.StageComplete, fmt.Sprintf("%d scenes, %d overlay layers", len(p.Scenes), layers)
}

type overlay struct {
	kind domain.LayerKind
	req  placement.Request
	z    int
}

// composeScene rebuilds the overlays and composition instructions of scene.
// Overlays are placed logo first, then product, then text, each avoiding the
// ones before it.
func (pl *Pipeline) composeScene(pc *ProjectContext, scene *domain.Scene) {
	p := pc.Project
	prof := pl.profile.Placement
	scene.Overlays = domain.Overlays{}

	var queue []overlay
	if logo, ok := pc.Brand.Logo(); ok && strings.TrimSpace(logo.URL) != "" {
		asset := domain.AssetRef{Kind: domain.AssetKindLogo, URL: logo.URL, Provenance: domain.ProvenanceUploaded, Source: "brand:" + logo.ID, Width: logo.Width, Height: logo.Height}
		scene.Overlays.Logo = &domain.ImageOverlay{Enabled: true, Asset: asset}
		req := prof.Logo
		req.AspectRatio = asset.AspectRatio()
		queue = append(queue, overlay{kind: domain.LayerLogo, req: req, z: 3})
	}
	if p.Product != nil && !p.Product.IsZero() && (scene.Type == domain.SceneProduct || scene.Type == domain.SceneCTA) {
		asset := *p.Product
		asset.Kind = domain.AssetKindProduct
		scene.Overlays.Product = &domain.ImageOverlay{Enabled: true, Asset: asset}
		req := prof.Product
		req.AspectRatio = asset.AspectRatio()
		queue = append(queue, overlay{kind: domain.LayerProduct, req: req, z: 1})
	}
	if text := overlayText(scene); text != "" {
		scene.Overlays.Text = &domain.TextOverlay{Enabled: true, Content: text}
		queue = append(queue, overlay{kind: domain.LayerText, req: prof.Text, z: 2})
	}

	layout := placement.Layout{Canvas: p.Canvas, Margin: prof.Margin}
	reqs := make([]placement.Request, len(queue))
	for i, o := range queue {
		reqs[i] = o.req
	}
	placed := layout.PlaceAll(reqs, nil)

	ci := &domain.CompositionInstructions{CameraMotion: cameraMotion(scene), Layers: []domain.CompositionLayer{}}
	for i, o := range queue {
		pos := placed[i]
		switch o.kind {
		case domain.LayerLogo:
			scene.Overlays.Logo.Placement = &pos
		case domain.LayerProduct:
			scene.Overlays.Product.Placement = &pos
		case domain.LayerText:
			scene.Overlays.Text.Placement = &pos
		}
		ci.Layers = append(ci.Layers, domain.CompositionLayer{Kind: o.kind, Placement: pos, Z: o.z})
	}
	scene.Composition = ci
}

// cameraMotion is the renderer motion for the scene background.
func cameraMotion(scene *domain.Scene) string {
	if scene.Background == nil || scene.Background.Kind == domain.BackgroundVideo {
		return "none"
	}
	switch scene.Type {
	case domain.SceneHook, domain.SceneCTA:
		return "zoom_in"
	default:
		return "pan_right"
	}
}

// overlayText is the scene's on-screen copy. CTA scenes without explicit copy
// use a title-cased prefix of their narration.
func overlayText(scene *domain.Scene) string {
	if t := strings.TrimSpace(scene.OverlayText); t != "" {
		return t
	}
	if scene.Type != domain.SceneCTA {
		return ""
	}
	words := strings.Fields(scene.Narration)
	if len(words) == 0 {
		return ""
	}
	if len(words) > ctaWords {
		words = words[:ctaWords]
	}
	text := strings.TrimRight(strings.Join(words, " "), ".,;:!?")
	return cases.Title(language.Und).String(text)
}

// dropLayer removes the composition layer of kind from scene.
func dropLayer(scene *domain.Scene, kind domain.LayerKind) {
	if scene.Composition == nil {
		return
	}
	kept := scene.Composition.Layers[:0]
	for _, l := range scene.Composition.Layers {
		if l.Kind != kind {
			kept = append(kept, l)
		}
	}
	scene.Composition.Layers = kept
}
