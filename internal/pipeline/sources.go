package pipeline

import (
	"strings"

	"studio/internal/config"
	"studio/internal/domain"
	"studio/internal/fallback"
	"studio/internal/providers/audio"
	"studio/internal/providers/genai"
	"studio/internal/providers/image"
	"studio/internal/providers/mediajobs"
	"studio/internal/providers/qwen"
	"studio/internal/providers/stock"
	"studio/internal/providers/tts"
	"studio/internal/providers/video"
)

// Provider is one entry of a generation chain.
type Provider = fallback.Provider[domain.GenerationRequest, domain.AssetRef]

// Screen filters stock candidates before they are returned by a provider.
type Screen = func(domain.AssetRef) bool

// Sources lists the providers of every capability. Image and video lists are
// built per scene so stock providers can screen with the scene's context.
type Sources struct {
	Voiceover Provider
	Images    func(Screen) []Provider
	Videos    func(Screen) []Provider
	Music     []Provider
	SFX       []Provider
}

// Clients are the provider clients available to a process. Nil clients and
// clients without credentials are left out of every chain.
type Clients struct {
	Gemini *genai.Client
	Qwen   *qwen.Client
	Stock  *stock.Client
	Jobs   *mediajobs.Client
	TTS    *tts.Client
}

// NewSources orders the configured clients by the profile's provider classes.
func NewSources(c Clients, prof config.ProviderProfile) Sources {
	var src Sources
	if c.TTS != nil && c.TTS.HasCredentials() {
		src.Voiceover = audio.NewVoiceover(c.TTS)
	}
	src.Images = func(screen Screen) []Provider {
		var out []Provider
		for _, class := range prof.Images {
			switch strings.ToLower(strings.TrimSpace(class)) {
			case "pexels", "stock":
				if c.Stock != nil && c.Stock.HasCredentials() {
					out = append(out, image.NewStockPhotos(c.Stock, screen))
				}
			case "gemini":
				if c.Gemini != nil && c.Gemini.HasCredentials() {
					out = append(out, image.NewGeminiGenerator(c.Gemini))
				}
			case "dashscope", "qwen":
				if c.Qwen != nil && c.Qwen.HasCredentials() {
					out = append(out, image.NewQwenGenerator(c.Qwen))
				}
			}
		}
		return out
	}
	src.Videos = func(screen Screen) []Provider {
		var out []Provider
		for _, class := range prof.Videos {
			switch strings.ToLower(strings.TrimSpace(class)) {
			case "pexels", "stock":
				if c.Stock != nil && c.Stock.HasCredentials() {
					out = append(out, video.NewStockVideos(c.Stock, screen))
				}
			case "mediajobs":
				if c.Jobs != nil && c.Jobs.HasCredentials() {
					out = append(out, video.NewJobGenerator(c.Jobs, prof.VideoModel))
				}
			}
		}
		return out
	}
	if c.Jobs != nil && c.Jobs.HasCredentials() {
		for _, model := range prof.MusicModels {
			src.Music = append(src.Music, audio.NewMusic(c.Jobs, model))
		}
		src.SFX = append(src.SFX, audio.NewSFX(c.Jobs, prof.SFXModel))
	}
	return src
}

func (s Sources) images(screen Screen) []Provider {
	if s.Images == nil {
		return nil
	}
	return s.Images(screen)
}

func (s Sources) videos(screen Screen) []Provider {
	if s.Videos == nil {
		return nil
	}
	return s.Videos(screen)
}
