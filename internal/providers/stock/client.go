// Package stock searches a Pexels-compatible stock media API.
package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/providers"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = fmt.Errorf("stock: api key is required: %w", domain.ErrProviderNotReady)

// Options configures the stock client.
type Options struct {
	APIKey     string
	BaseURL    string
	PerPage    int
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client queries photo and video search endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	perPage    int
	httpClient *http.Client
	logger     *infra.Logger
}

// Query is one search.
type Query struct {
	Text        string
	Orientation string
	MinDuration float64
}

type photoResponse struct {
	Photos []struct {
		ID           int64  `json:"id"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		URL          string `json:"url"`
		Photographer string `json:"photographer"`
		Alt          string `json:"alt"`
		Src          struct {
			Original string `json:"original"`
			Large2x  string `json:"large2x"`
		} `json:"src"`
	} `json:"photos"`
}

type videoResponse struct {
	Videos []struct {
		ID       int64    `json:"id"`
		Width    int      `json:"width"`
		Height   int      `json:"height"`
		Duration float64  `json:"duration"`
		URL      string   `json:"url"`
		Tags     []string `json:"tags"`
		User     struct {
			Name string `json:"name"`
		} `json:"user"`
		VideoFiles []struct {
			Link     string `json:"link"`
			Quality  string `json:"quality"`
			FileType string `json:"file_type"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
		} `json:"video_files"`
	} `json:"videos"`
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.pexels.com"
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 15
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
		perPage:    perPage,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// SearchPhotos returns photo candidates in ranking order.
func (c *Client) SearchPhotos(ctx context.Context, q Query) ([]domain.AssetRef, error) {
	var decoded photoResponse
	if err := c.get(ctx, "/v1/search", q, &decoded); err != nil {
		return nil, err
	}
	out := make([]domain.AssetRef, 0, len(decoded.Photos))
	for _, p := range decoded.Photos {
		link := firstNonEmpty(p.Src.Large2x, p.Src.Original)
		if link == "" {
			continue
		}
		out = append(out, domain.AssetRef{
			Kind:        domain.AssetKindImage,
			URL:         link,
			Provenance:  domain.ProvenanceStock,
			Source:      "pexels",
			ContentType: "image/jpeg",
			Width:       p.Width,
			Height:      p.Height,
			Meta: &domain.AssetMeta{
				Tags:        SlugTags(p.URL),
				Title:       p.Alt,
				Description: p.Alt,
				Uploader:    p.Photographer,
			},
		})
	}
	c.logger.Debug().Str("query", q.Text).Int("results", len(out)).Msg("stock: photo search")
	return out, nil
}

// SearchVideos returns video candidates, choosing the best HD file of each.
func (c *Client) SearchVideos(ctx context.Context, q Query) ([]domain.AssetRef, error) {
	var decoded videoResponse
	if err := c.get(ctx, "/videos/search", q, &decoded); err != nil {
		return nil, err
	}
	out := make([]domain.AssetRef, 0, len(decoded.Videos))
	for _, v := range decoded.Videos {
		if q.MinDuration > 0 && v.Duration < q.MinDuration {
			continue
		}
		best := -1
		for i, f := range v.VideoFiles {
			if f.FileType != "video/mp4" || f.Link == "" {
				continue
			}
			if best < 0 || rankQuality(f.Quality, f.Width) > rankQuality(v.VideoFiles[best].Quality, v.VideoFiles[best].Width) {
				best = i
			}
		}
		if best < 0 {
			continue
		}
		f := v.VideoFiles[best]
		tags := append(SlugTags(v.URL), v.Tags...)
		out = append(out, domain.AssetRef{
			Kind:        domain.AssetKindVideo,
			URL:         f.Link,
			Provenance:  domain.ProvenanceStock,
			Source:      "pexels",
			ContentType: "video/mp4",
			Width:       f.Width,
			Height:      f.Height,
			Duration:    v.Duration,
			Meta:        &domain.AssetMeta{Tags: tags, Uploader: v.User.Name},
		})
	}
	c.logger.Debug().Str("query", q.Text).Int("results", len(out)).Msg("stock: video search")
	return out, nil
}

// rankQuality prefers hd files up to 1920 wide over larger uhd files.
func rankQuality(quality string, width int) int {
	score := width
	switch quality {
	case "hd":
		score += 10000
	case "uhd", "4k":
		score += 5000
	}
	if width > 1920 {
		score -= 3000
	}
	return score
}

func (c *Client) get(ctx context.Context, endpoint string, q Query, out any) error {
	if !c.HasCredentials() {
		return ErrMissingAPIKey
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return fmt.Errorf("stock: query is required: %w", domain.ErrProviderFailure)
	}
	params := url.Values{}
	params.Set("query", text)
	params.Set("per_page", strconv.Itoa(c.perPage))
	if o := strings.TrimSpace(q.Orientation); o != "" {
		params.Set("orientation", o)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("stock: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return providers.Failed("stock", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Failed("stock", err)
	}
	if resp.StatusCode >= 300 {
		return providers.StatusError("stock", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("stock: decode response: %v: %w", err, domain.ErrProviderFailure)
	}
	return nil
}

// SlugTags extracts descriptive words from a page URL such as
// https://www.pexels.com/photo/woman-doing-yoga-3820320/.
func SlugTags(pageURL string) []string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	slug := path.Base(strings.TrimRight(u.Path, "/"))
	var tags []string
	for _, part := range strings.Split(slug, "-") {
		if part == "" {
			continue
		}
		if _, err := strconv.Atoi(part); err == nil {
			continue
		}
		tags = append(tags, part)
	}
	return tags
}

// Orientation maps an aspect ratio string onto the search orientation filter.
func Orientation(aspect string) string {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) != 2 {
		return ""
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	switch {
	case errW != nil || errH != nil:
		return ""
	case w > h:
		return "landscape"
	case w < h:
		return "portrait"
	default:
		return "square"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
