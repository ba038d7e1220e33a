package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
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
var ErrMissingAPIKey = fmt.Errorf("qwen: api key is required: %w", domain.ErrProviderNotReady)

// Options configures the DashScope Qwen client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
	Poll           poll.Config
}

// Client performs HTTP calls to the DashScope asynchronous text-to-image API.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	defaultSize  string
	promptExtend bool
	watermark    bool
	httpClient   *http.Client
	logger       *infra.Logger
	poll         poll.Config
}

// ImageRequest captures the required inputs for image generation.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
	RequestID      string
}

// ImageAsset is the normalized result from the Qwen API.
type ImageAsset struct {
	URL    string
	Data   []byte
	Format string
	Width  int
	Height int
}

type synthesisRequest struct {
	Model      string          `json:"model"`
	Input      synthesisInput  `json:"input"`
	Parameters synthesisParams `json:"parameters"`
}

type synthesisInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type synthesisParams struct {
	Size         string `json:"size,omitempty"`
	N            int    `json:"n"`
	PromptExtend *bool  `json:"prompt_extend,omitempty"`
	Watermark    *bool  `json:"watermark,omitempty"`
	Seed         *int   `json:"seed,omitempty"`
}

type taskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Code       string `json:"code"`
		Message    string `json:"message"`
		Results    []struct {
			URL     string `json:"url"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"results"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Task statuses reported by DashScope.
const (
	statusPending   = "PENDING"
	statusRunning   = "RUNNING"
	statusSucceeded = "SUCCEEDED"
	statusFailed    = "FAILED"
	statusCanceled  = "CANCELED"
	statusUnknown   = "UNKNOWN"
)

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wan2.2-t2i-flash"
	}
	defaultSize := strings.TrimSpace(opts.DefaultSize)
	if defaultSize == "" {
		defaultSize = "1280*720"
	}
	pollCfg := opts.Poll
	if pollCfg.Interval <= 0 {
		pollCfg.Interval = 3 * time.Second
	}
	if pollCfg.MaxAttempts <= 0 {
		pollCfg.MaxAttempts = 40
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
		defaultSize:  defaultSize,
		promptExtend: opts.PromptExtend,
		watermark:    opts.Watermark,
		httpClient:   httpClient,
		logger:       logger,
		poll:         pollCfg,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage submits an asynchronous synthesis task, polls it to
// completion and downloads the first result.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("qwen: prompt is required")
	}
	taskID, err := c.submit(ctx, req, prompt)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("task_id", taskID).Str("model", c.model).Msg("qwen: task submitted")

	imageURL, err := poll.Until(ctx, c.poll, func(ctx context.Context) (string, bool, error) {
		task, err := c.fetchTask(ctx, taskID)
		if err != nil {
			return "", false, err
		}
		switch task.Output.TaskStatus {
		case statusSucceeded:
			for _, r := range task.Output.Results {
				if u := strings.TrimSpace(r.URL); u != "" {
					return u, true, nil
				}
			}
			return "", false, fmt.Errorf("qwen: task %s succeeded without results: %w", taskID, domain.ErrProviderFailure)
		case statusFailed, statusCanceled, statusUnknown:
			return "", false, fmt.Errorf("qwen: task %s %s: %s (%s): %w", taskID, strings.ToLower(task.Output.TaskStatus), task.Output.Message, task.Output.Code, domain.ErrProviderFailure)
		default:
			return "", false, nil
		}
	})
	if err != nil {
		if errors.Is(err, poll.ErrTimeout) {
			return nil, fmt.Errorf("qwen: task %s: %v: %w", taskID, err, domain.ErrProviderFailure)
		}
		return nil, err
	}

	data, format, err := c.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("task_id", taskID).
		Str("url", imageURL).
		Msg("qwen: generated image asset")
	return &ImageAsset{URL: imageURL, Data: data, Format: format, Width: width, Height: height}, nil
}

func (c *Client) submit(ctx context.Context, req ImageRequest, prompt string) (string, error) {
	payload := synthesisRequest{
		Model: c.model,
		Input: synthesisInput{Prompt: prompt, NegativePrompt: strings.TrimSpace(req.NegativePrompt)},
		Parameters: synthesisParams{
			Size: firstNonEmpty(strings.TrimSpace(req.Size), c.defaultSize),
			N:    1,
		},
	}
	if extend := c.promptExtend; extend {
		payload.Parameters.PromptExtend = &extend
	}
	if req.Seed > 0 {
		payload.Parameters.Seed = &req.Seed
	}
	watermark := c.watermark
	payload.Parameters.Watermark = &watermark

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("qwen: encode request: %w", err)
	}
	endpoint := c.baseURL + "/services/aigc/text2image/image-synthesis"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

	var decoded taskResponse
	if err := c.do(httpReq, &decoded); err != nil {
		return "", err
	}
	if decoded.Output.TaskID == "" {
		return "", fmt.Errorf("qwen: missing task id: %w", domain.ErrProviderFailure)
	}
	return decoded.Output.TaskID, nil
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (*taskResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, fmt.Errorf("qwen: build task request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	var decoded taskResponse
	if err := c.do(httpReq, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (c *Client) do(req *http.Request, out *taskResponse) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.Failed("qwen", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Failed("qwen", err)
	}
	if resp.StatusCode >= 300 {
		var detail taskResponse
		if err := json.Unmarshal(raw, &detail); err == nil && isQuotaCode(detail.Code) {
			return fmt.Errorf("qwen: status %d: %s (%s): %w", resp.StatusCode, detail.Message, detail.Code, domain.ErrQuotaExceeded)
		}
		return providers.StatusError("qwen", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("qwen: decode response: %v: %w", err, domain.ErrProviderFailure)
	}
	if out.Code != "" {
		if isQuotaCode(out.Code) {
			return fmt.Errorf("qwen: %s (%s): %w", out.Message, out.Code, domain.ErrQuotaExceeded)
		}
		return fmt.Errorf("qwen: %s (%s): %w", out.Message, out.Code, domain.ErrProviderFailure)
	}
	return nil
}

func isQuotaCode(code string) bool {
	switch code {
	case "Arrearage", "AllocationQuota", "Throttling.AllocationQuota", "DataInspectionFailed.Quota":
		return true
	}
	return strings.Contains(strings.ToLower(code), "quota")
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("qwen: invalid image url: %s: %w", imageURL, domain.ErrProviderFailure)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", providers.Failed("qwen", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("qwen: download status %d: %w", resp.StatusCode, domain.ErrProviderFailure)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", providers.Failed("qwen", err)
	}
	format := resp.Header.Get("Content-Type")
	if format == "" {
		format = "image/png"
	}
	return data, format, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
