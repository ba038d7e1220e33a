// Package bootstrap builds the pipeline and its provider clients from the
// process configuration. The API and the worker share it.
package bootstrap

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/config"
	"studio/internal/infra"
	"studio/internal/pipeline"
	"studio/internal/providers/genai"
	"studio/internal/providers/mediajobs"
	"studio/internal/providers/poll"
	"studio/internal/providers/qwen"
	"studio/internal/providers/stock"
	"studio/internal/providers/tts"
	"studio/internal/quality"
	"studio/internal/storage"
)

// Clients constructs every provider client. Clients without credentials are
// returned too; the pipeline leaves them out of its chains.
func Clients(cfg *infra.Config, httpClient *http.Client, logger *zerolog.Logger) (pipeline.Clients, error) {
	pollCfg := poll.Config{Interval: cfg.PollInterval, MaxAttempts: cfg.PollMaxAttempts}

	gemini, err := genai.NewClient(genai.Options{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		ImageModel:  cfg.Gemini.Model,
		VisionModel: cfg.GeminiVision,
		HTTPClient:  httpClient,
		Logger:      logger,
	})
	if err != nil {
		return pipeline.Clients{}, fmt.Errorf("gemini client: %w", err)
	}
	dashscope, err := qwen.NewClient(qwen.Options{
		APIKey:     cfg.DashScope.APIKey,
		BaseURL:    cfg.DashScope.BaseURL,
		Model:      cfg.DashScope.Model,
		HTTPClient: httpClient,
		Logger:     logger,
		Poll:       pollCfg,
	})
	if err != nil {
		return pipeline.Clients{}, fmt.Errorf("dashscope client: %w", err)
	}
	pexels, err := stock.NewClient(stock.Options{
		APIKey:     cfg.Pexels.APIKey,
		BaseURL:    cfg.Pexels.BaseURL,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return pipeline.Clients{}, fmt.Errorf("stock client: %w", err)
	}
	// The media job API has no public default endpoint.
	var jobs *mediajobs.Client
	if strings.TrimSpace(cfg.MediaJobs.BaseURL) != "" {
		jobs, err = mediajobs.NewClient(mediajobs.Options{
			APIKey:     cfg.MediaJobs.APIKey,
			BaseURL:    cfg.MediaJobs.BaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
			Poll:       pollCfg,
		})
		if err != nil {
			return pipeline.Clients{}, fmt.Errorf("media jobs client: %w", err)
		}
	}
	speech, err := tts.NewClient(tts.Options{
		APIKey:       cfg.TTS.APIKey,
		BaseURL:      cfg.TTS.BaseURL,
		Model:        cfg.TTS.Model,
		DefaultVoice: cfg.TTSVoice,
		HTTPClient:   httpClient,
		Logger:       logger,
	})
	if err != nil {
		return pipeline.Clients{}, fmt.Errorf("tts client: %w", err)
	}
	return pipeline.Clients{Gemini: gemini, Qwen: dashscope, Stock: pexels, Jobs: jobs, TTS: speech}, nil
}

// Policy returns the durability policy for cfg and the profile's extra
// trusted prefixes.
func Policy(cfg *infra.Config, profile config.Profile) storage.Policy {
	trusted := append(cfg.TrustedPrefixes(), profile.TrustedPrefixes...)
	return storage.Policy{Trusted: trusted, AllowHTTP: cfg.StorageAllowHTTP}
}

// Pipeline builds a pipeline writing durable assets to store.
func Pipeline(cfg *infra.Config, profile config.Profile, store storage.Store, logger zerolog.Logger) (*pipeline.Pipeline, error) {
	httpClient := &http.Client{Timeout: cfg.HTTPWriteTimeout * 4}
	clients, err := Clients(cfg, httpClient, &logger)
	if err != nil {
		return nil, err
	}

	var analyzer quality.Analyzer
	if clients.Gemini.HasCredentials() {
		analyzer = clients.Gemini
	} else {
		logger.Warn().Msg("bootstrap: gemini api key missing, scene analysis disabled")
	}
	sources := pipeline.NewSources(clients, profile.Providers)
	if sources.Voiceover == nil {
		logger.Warn().Msg("bootstrap: no voiceover provider configured")
	}

	return pipeline.New(pipeline.Options{
		Profile:  profile,
		Sources:  sources,
		Analyzer: analyzer,
		Store:    store,
		Policy:   Policy(cfg, profile),
		Fetcher:  pipeline.NewHTTPFetcher(httpClient),
		Logger:   &logger,
	}), nil
}
