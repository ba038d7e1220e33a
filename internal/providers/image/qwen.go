package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.ImageAsset, error)
	Model() string
}

// QwenGenerator produces scene images with DashScope's text-to-image models.
type QwenGenerator struct {
	client qwenImageClient
}

// NewQwenGenerator wraps a Qwen client.
func NewQwenGenerator(client qwenImageClient) *QwenGenerator {
	return &QwenGenerator{client: client}
}

func (g *QwenGenerator) Name() string  { return "dashscope:" + g.client.Model() }
func (g *QwenGenerator) Class() string { return "dashscope" }

// Generate fulfils the Provider interface.
func (g *QwenGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	prompt := BuildScenePrompt(req)
	imageReq := qwen.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: DefaultNegativePrompt,
		Size:           AspectRatioSize(req.AspectRatio),
		Seed:           deterministicSeed(req.ProjectID, req.SceneID, prompt),
		RequestID:      req.SceneID,
	}
	asset, err := g.invokeQwen(ctx, imageReq)
	if err != nil {
		return domain.AssetRef{}, err
	}
	return domain.AssetRef{
		Kind:        domain.AssetKindImage,
		URL:         asset.URL,
		Provenance:  domain.ProvenanceAI,
		Source:      g.Name(),
		ContentType: normalizeFormat(asset.Format),
		Width:       asset.Width,
		Height:      asset.Height,
		Data:        asset.Data,
		Meta:        &domain.AssetMeta{Description: req.Prompt},
	}, nil
}

// invokeQwen retries once with a simplified request on transient errors.
func (g *QwenGenerator) invokeQwen(ctx context.Context, req qwen.ImageRequest) (*qwen.ImageAsset, error) {
	asset, err := g.client.GenerateImage(ctx, req)
	if err == nil {
		return asset, nil
	}
	if !isTransientQwenError(err) {
		return nil, err
	}
	return g.client.GenerateImage(ctx, simplifyQwenRequest(req))
}

func deterministicSeed(values ...any) int {
	var parts []string
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	value := int(binary.BigEndian.Uint32(sum[:4]) % 2147483647)
	if value <= 0 {
		value = 1
	}
	return value
}

func normalizeFormat(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "image/png":
		return "image/png"
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return "image/png"
	}
}

func simplifyQwenRequest(req qwen.ImageRequest) qwen.ImageRequest {
	simplified := req
	simplified.NegativePrompt = ""
	if i := strings.IndexByte(simplified.Prompt, '\n'); i > 0 {
		simplified.Prompt = simplified.Prompt[:i]
	}
	return simplified
}

func isTransientQwenError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	for _, marker := range []string{"internalerror", "internal error", "service unavailable", "server unavailable", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var _ Provider = (*QwenGenerator)(nil)
