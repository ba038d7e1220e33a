package audio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/fallback"
	"studio/internal/providers/mediajobs"
	"studio/internal/providers/tts"
)

type stubJobs struct {
	calls []mediajobs.JobRequest
	errs  map[string]error
}

func (s *stubJobs) Generate(_ context.Context, req mediajobs.JobRequest) (*mediajobs.Output, error) {
	s.calls = append(s.calls, req)
	if err := s.errs[req.Model]; err != nil {
		return nil, err
	}
	return &mediajobs.Output{URL: "https://jobs/" + req.Model + ".mp3", Duration: req.Duration}, nil
}

func TestMusicModelsShareQuotaClass(t *testing.T) {
	jobs := &stubJobs{errs: map[string]error{"suno-v4": domain.ErrQuotaExceeded}}
	library := fallback.Func[domain.GenerationRequest, domain.AssetRef]{
		ProviderName:  "library",
		ProviderClass: "library",
		Fn: func(context.Context, domain.GenerationRequest) (domain.AssetRef, error) {
			return domain.AssetRef{Kind: domain.AssetKindMusic, URL: "https://cdn/library.mp3"}, nil
		},
	}
	chain := fallback.NewChain("music", fallback.Options[domain.AssetRef]{},
		Provider(NewMusic(jobs, "suno-v4")),
		Provider(NewMusic(jobs, "suno-v3")),
		Provider(library),
	)
	res := chain.Run(context.Background(), domain.GenerationRequest{Mood: "calm", Duration: 30})
	if !res.Success || res.Source != "library" {
		t.Fatalf("expected library fallback, got %+v", res)
	}
	if len(jobs.calls) != 1 {
		t.Fatalf("second model of the exhausted class must be skipped, got %d calls", len(jobs.calls))
	}
	if len(res.Failures) != 2 || !strings.Contains(res.Failures[1].Error, "skipped") {
		t.Fatalf("unexpected failures %+v", res.Failures)
	}
}

func TestMusicPromptFromMood(t *testing.T) {
	jobs := &stubJobs{}
	asset, err := NewMusic(jobs, "suno-v4").Generate(context.Background(), domain.GenerationRequest{Mood: "calm", Duration: 30})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if asset.Kind != domain.AssetKindMusic || asset.ContentType != "audio/mpeg" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if jobs.calls[0].Kind != mediajobs.KindMusic || !strings.Contains(jobs.calls[0].Prompt, "calm instrumental") {
		t.Fatalf("unexpected job %+v", jobs.calls[0])
	}
}

func TestSFXPrompt(t *testing.T) {
	jobs := &stubJobs{}
	asset, err := NewSFX(jobs, "").Generate(context.Background(), domain.GenerationRequest{Mood: "soft_whoosh"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if asset.Kind != domain.AssetKindSFX || asset.Source != "mediajobs:sfx" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if jobs.calls[0].Prompt != "short soft whoosh sound effect" {
		t.Fatalf("unexpected prompt %q", jobs.calls[0].Prompt)
	}
}

type stubTTS struct {
	req tts.Request
	err error
}

func (s *stubTTS) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &tts.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg", Voice: "rachel"}, nil
}

func TestVoiceoverKeepsBytesInline(t *testing.T) {
	client := &stubTTS{}
	asset, err := NewVoiceover(client).Generate(context.Background(), domain.GenerationRequest{Text: "hello there", Locale: "id-ID", Duration: 12})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if asset.URL != "" || string(asset.Data) != "mp3" || asset.Duration != 12 || asset.Source != "tts:rachel" {
		t.Fatalf("unexpected asset %+v", asset)
	}
	if client.req.Locale != "id-ID" || client.req.Text != "hello there" {
		t.Fatalf("request not forwarded: %+v", client.req)
	}
}

func TestVoiceoverPropagatesError(t *testing.T) {
	client := &stubTTS{err: domain.ErrProviderNotReady}
	if _, err := NewVoiceover(client).Generate(context.Background(), domain.GenerationRequest{Text: "x"}); !errors.Is(err, domain.ErrProviderNotReady) {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}
