// Package audio adapts music, sound effect and narration clients into
// pipeline providers.
package audio

import (
	"context"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/fallback"
	"studio/internal/providers/mediajobs"
	"studio/internal/providers/tts"
)

// Provider is a music or sfx chain entry.
type Provider = fallback.Provider[domain.GenerationRequest, domain.AssetRef]

type jobRunner interface {
	Generate(context.Context, mediajobs.JobRequest) (*mediajobs.Output, error)
}

// JobProvider generates music or sound effects through the media jobs API.
// Every model shares the "mediajobs" billing class.
type JobProvider struct {
	client jobRunner
	kind   mediajobs.Kind
	model  string
}

// NewMusic returns a music provider for model.
func NewMusic(client jobRunner, model string) *JobProvider {
	return &JobProvider{client: client, kind: mediajobs.KindMusic, model: strings.TrimSpace(model)}
}

// NewSFX returns a sound effect provider for model.
func NewSFX(client jobRunner, model string) *JobProvider {
	return &JobProvider{client: client, kind: mediajobs.KindSFX, model: strings.TrimSpace(model)}
}

func (p *JobProvider) Name() string {
	if p.model == "" {
		return "mediajobs:" + string(p.kind)
	}
	return "mediajobs:" + p.model
}

func (p *JobProvider) Class() string { return "mediajobs" }

// Generate fulfils the Provider interface.
func (p *JobProvider) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	out, err := p.client.Generate(ctx, mediajobs.JobRequest{
		Kind:     p.kind,
		Model:    p.model,
		Prompt:   p.prompt(req),
		Duration: req.Duration,
		Mood:     req.Mood,
	})
	if err != nil {
		return domain.AssetRef{}, err
	}
	kind := domain.AssetKindMusic
	if p.kind == mediajobs.KindSFX {
		kind = domain.AssetKindSFX
	}
	contentType := out.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return domain.AssetRef{
		Kind:        kind,
		URL:         out.URL,
		Provenance:  domain.ProvenanceAI,
		Source:      p.Name(),
		ContentType: contentType,
		Duration:    out.Duration,
	}, nil
}

func (p *JobProvider) prompt(req domain.GenerationRequest) string {
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		return prompt
	}
	mood := strings.TrimSpace(req.Mood)
	if mood == "" {
		mood = "upbeat"
	}
	if p.kind == mediajobs.KindSFX {
		return fmt.Sprintf("short %s sound effect", strings.ReplaceAll(mood, "_", " "))
	}
	return fmt.Sprintf("%s instrumental background music for a promotional video, %.0f seconds", mood, req.Duration)
}

type synthesizer interface {
	Synthesize(context.Context, tts.Request) (*tts.Audio, error)
}

// Voiceover is the single mandatory narration provider.
type Voiceover struct {
	client synthesizer
}

// NewVoiceover wraps a TTS client.
func NewVoiceover(client synthesizer) *Voiceover {
	return &Voiceover{client: client}
}

func (v *Voiceover) Name() string  { return "tts" }
func (v *Voiceover) Class() string { return "tts" }

// Generate synthesises req.Text. The bytes stay inline until asset caching.
func (v *Voiceover) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	audio, err := v.client.Synthesize(ctx, tts.Request{Text: req.Text, Voice: req.Voice, Locale: req.Locale})
	if err != nil {
		return domain.AssetRef{}, err
	}
	return domain.AssetRef{
		Kind:        domain.AssetKindVoiceover,
		Provenance:  domain.ProvenanceAI,
		Source:      v.Name() + ":" + audio.Voice,
		ContentType: audio.ContentType,
		Duration:    req.Duration,
		Data:        audio.Data,
	}, nil
}

var (
	_ Provider = (*JobProvider)(nil)
	_ Provider = (*Voiceover)(nil)
)
