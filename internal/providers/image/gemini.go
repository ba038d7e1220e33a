package image

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

type geminiImageClient interface {
	GenerateImage(context.Context, genai.ImageRequest) (*genai.ImageAsset, error)
	Model() string
}

// GeminiGenerator produces scene images with the Gemini image model.
type GeminiGenerator struct {
	client geminiImageClient
}

// NewGeminiGenerator wraps a Gemini client.
func NewGeminiGenerator(client geminiImageClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Name() string  { return "gemini:" + g.client.Model() }
func (g *GeminiGenerator) Class() string { return "gemini" }

// Generate fulfils the Provider interface.
func (g *GeminiGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	asset, err := g.client.GenerateImage(ctx, genai.ImageRequest{
		Prompt:      BuildScenePrompt(req),
		AspectRatio: req.AspectRatio,
		RequestID:   req.SceneID,
	})
	if err != nil {
		return domain.AssetRef{}, err
	}
	if len(asset.Data) == 0 {
		return domain.AssetRef{}, fmt.Errorf("gemini: empty image: %w", domain.ErrProviderFailure)
	}
	return domain.AssetRef{
		Kind:        domain.AssetKindImage,
		Provenance:  domain.ProvenanceAI,
		Source:      g.Name(),
		ContentType: asset.Format,
		Width:       asset.Width,
		Height:      asset.Height,
		Data:        asset.Data,
		Meta:        &domain.AssetMeta{Description: req.Prompt},
	}, nil
}

var _ Provider = (*GeminiGenerator)(nil)
