package video

import (
	"context"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/mediajobs"
)

type jobRunner interface {
	Generate(context.Context, mediajobs.JobRequest) (*mediajobs.Output, error)
}

// JobGenerator renders a clip through the async media jobs API.
type JobGenerator struct {
	client jobRunner
	model  string
}

// NewJobGenerator wraps a media jobs client for one video model.
func NewJobGenerator(client jobRunner, model string) *JobGenerator {
	return &JobGenerator{client: client, model: strings.TrimSpace(model)}
}

func (g *JobGenerator) Name() string {
	if g.model == "" {
		return "mediajobs:video"
	}
	return "mediajobs:" + g.model
}

func (g *JobGenerator) Class() string { return "mediajobs" }

// Generate fulfils the Provider interface.
func (g *JobGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = strings.TrimSpace(req.Query)
	}
	if prompt == "" {
		return domain.AssetRef{}, fmt.Errorf("mediajobs: empty video prompt: %w", domain.ErrProviderFailure)
	}
	out, err := g.client.Generate(ctx, mediajobs.JobRequest{
		Kind:        mediajobs.KindVideo,
		Model:       g.model,
		Prompt:      prompt,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Mood:        req.Mood,
	})
	if err != nil {
		return domain.AssetRef{}, err
	}
	contentType := out.ContentType
	if contentType == "" {
		contentType = "video/mp4"
	}
	return domain.AssetRef{
		Kind:        domain.AssetKindVideo,
		URL:         out.URL,
		Provenance:  domain.ProvenanceAI,
		Source:      g.Name(),
		ContentType: contentType,
		Width:       out.Width,
		Height:      out.Height,
		Duration:    out.Duration,
		Meta:        &domain.AssetMeta{Description: prompt},
	}, nil
}

var _ Provider = (*JobGenerator)(nil)
