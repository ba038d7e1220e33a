// Package tts synthesises narration audio through an ElevenLabs-compatible API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("tts: api key is required: %w", domain.ErrProviderNotReady)

// Options configures the client.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	DefaultVoice string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client calls the text-to-speech endpoint.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	defaultVoice string
	httpClient   *http.Client
	logger       *infra.Logger
}

// Request is one synthesis call.
type Request struct {
	Text   string
	Voice  string
	Locale string
}

// Audio is synthesised narration held in memory until it is cached.
type Audio struct {
	Data        []byte
	ContentType string
	Voice       string
}

type synthesisRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	voice := strings.TrimSpace(opts.DefaultVoice)
	if voice == "" {
		voice = "21m00Tcm4TlvDq8ikWAM"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		model:        model,
		defaultVoice: voice,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Synthesize converts text to speech.
func (c *Client) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("tts: text is required: %w", domain.ErrProviderFailure)
	}
	voice := strings.TrimSpace(req.Voice)
	if voice == "" {
		voice = c.defaultVoice
	}
	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.model, LanguageCode: languageCode(req.Locale)})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}
	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, providers.Failed("tts", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.Failed("tts", err)
	}
	if resp.StatusCode >= 300 {
		return nil, providers.StatusError("tts", resp.StatusCode, raw)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("tts: empty audio: %w", domain.ErrProviderFailure)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/json") {
		contentType = "audio/mpeg"
	}
	c.logger.Debug().Str("voice", voice).Int("bytes", len(raw)).Msg("tts: synthesised narration")
	return &Audio{Data: raw, ContentType: contentType, Voice: voice}, nil
}

// languageCode reduces a locale such as "id-ID" to its language subtag.
func languageCode(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		locale = locale[:i]
	}
	return strings.ToLower(locale)
}
