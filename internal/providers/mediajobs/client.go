// Package mediajobs talks to an asynchronous media generation service that
// accepts jobs for AI video, music and sound effects.
package mediajobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	"studio/internal/providers/poll"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("mediajobs: api key is required: %w", domain.ErrProviderNotReady)

// Kind is the type of media a job produces.
type Kind string

const (
	KindVideo Kind = "video"
	KindMusic Kind = "music"
	KindSFX   Kind = "sfx"
)

// Options configures the client.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Poll       poll.Config
}

// Client submits and observes jobs.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
	poll       poll.Config
}

// JobRequest describes one generation job.
type JobRequest struct {
	Kind        Kind    `json:"type"`
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	Duration    float64 `json:"duration,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
	Mood        string  `json:"mood,omitempty"`
}

// Output is the finished artifact of a job.
type Output struct {
	JobID       string
	URL         string
	ContentType string
	Duration    float64
	Width       int
	Height      int
}

type jobResponse struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	OutputURL   string  `json:"output_url"`
	ContentType string  `json:"content_type"`
	Duration    float64 `json:"duration"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Error       string  `json:"error"`
	ErrorCode   string  `json:"error_code"`
}

const (
	statusQueued    = "queued"
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("mediajobs: base url is required")
	}
	pollCfg := opts.Poll
	if pollCfg.Interval <= 0 {
		pollCfg.Interval = 5 * time.Second
	}
	if pollCfg.MaxAttempts <= 0 {
		pollCfg.MaxAttempts = 60
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
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		poll:       pollCfg,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Generate submits a job and waits for it within the poll ceiling.
func (c *Client) Generate(ctx context.Context, req JobRequest) (*Output, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("mediajobs: prompt is required: %w", domain.ErrProviderFailure)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("mediajobs: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mediajobs: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var submitted jobResponse
	if err := c.do(httpReq, &submitted); err != nil {
		return nil, err
	}
	if submitted.ID == "" {
		return nil, fmt.Errorf("mediajobs: missing job id: %w", domain.ErrProviderFailure)
	}
	c.logger.Debug().Str("job_id", submitted.ID).Str("kind", string(req.Kind)).Str("model", req.Model).Msg("mediajobs: job submitted")

	job, err := poll.Until(ctx, c.poll, func(ctx context.Context) (*jobResponse, bool, error) {
		job, err := c.fetch(ctx, submitted.ID)
		if err != nil {
			return nil, false, err
		}
		switch job.Status {
		case statusSucceeded:
			if job.OutputURL == "" {
				return nil, false, fmt.Errorf("mediajobs: job %s succeeded without output: %w", job.ID, domain.ErrProviderFailure)
			}
			return job, true, nil
		case statusFailed:
			return nil, false, jobError(job)
		default:
			return nil, false, nil
		}
	})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return nil, fmt.Errorf("mediajobs: job %s: %v: %w", submitted.ID, err, domain.ErrProviderFailure)
		}
		return nil, err
	}
	return &Output{
		JobID:       job.ID,
		URL:         job.OutputURL,
		ContentType: job.ContentType,
		Duration:    job.Duration,
		Width:       job.Width,
		Height:      job.Height,
	}, nil
}

func jobError(job *jobResponse) error {
	code := strings.ToLower(job.ErrorCode)
	if strings.Contains(code, "quota") || strings.Contains(code, "credit") || strings.Contains(code, "billing") {
		return fmt.Errorf("mediajobs: job %s failed: %s: %w", job.ID, job.Error, domain.ErrQuotaExceeded)
	}
	return fmt.Errorf("mediajobs: job %s failed: %s: %w", job.ID, job.Error, domain.ErrProviderFailure)
}

func (c *Client) fetch(ctx context.Context, id string) (*jobResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("mediajobs: build request: %w", err)
	}
	var job jobResponse
	if err := c.do(httpReq, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) do(req *http.Request, out *jobResponse) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.Failed("mediajobs", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Failed("mediajobs", err)
	}
	if resp.StatusCode >= 300 {
		return providers.StatusError("mediajobs", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("mediajobs: decode response: %v: %w", err, domain.ErrProviderFailure)
	}
	return nil
}
