package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/storage"
)

// maxFetchBytes bounds a single downloaded asset.
const maxFetchBytes = 512 << 20

// Fetcher downloads the bytes behind an ephemeral asset URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, string, error)
}

// HTTPFetcher fetches http(s) and data: URLs.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns a fetcher. A nil client gets a two minute timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPFetcher{client: client, maxBytes: maxFetchBytes}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if storage.IsInline(rawURL) {
		return decodeDataURL(rawURL)
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("fetch %q: unsupported url", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}
	limit := f.maxBytes
	if limit <= 0 {
		limit = maxFetchBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("fetch %s: asset exceeds %d bytes", u.Host, limit)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func decodeDataURL(raw string) ([]byte, string, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(raw), "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data url")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("decode data url: %w", err)
		}
		return data, contentType, nil
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return []byte(decoded), contentType, nil
}

type cacheStats struct {
	cached  int
	durable int
	failed  int
}

// cacher uploads non-durable assets to the object store, once per source URL.
type cacher struct {
	pl    *Pipeline
	pc    *ProjectContext
	stage domain.Stage
	done  map[string]string
	stats cacheStats
}

func (pl *Pipeline) newCacher(pc *ProjectContext, stage domain.Stage) *cacher {
	return &cacher{pl: pl, pc: pc, stage: stage, done: map[string]string{}}
}

// ensure makes a durable in place. On failure a keeps its ephemeral URL and
// an issue is recorded.
func (c *cacher) ensure(ctx context.Context, a *domain.AssetRef, sceneID string) bool {
	if a == nil || a.IsZero() {
		return false
	}
	if c.pl.policy.Resolved(*a) {
		a.Durable = true
		c.stats.durable++
		return true
	}
	a.Durable = false
	source := strings.TrimSpace(a.URL)
	if source != "" && len(a.Data) == 0 {
		if cached, ok := c.done[source]; ok {
			a.URL = cached
			a.Durable = true
			return true
		}
	}
	if err := c.upload(ctx, a); err != nil {
		c.stats.failed++
		c.pc.issue(c.stage, sceneID, domain.SeverityWarning, "cache_failed", fmt.Sprintf("%s asset not cached: %v", a.Kind, err))
		c.pc.Logger.Warn().Err(err).Str("stage", string(c.stage)).Str("scene_id", sceneID).Str("kind", string(a.Kind)).Msg("pipeline: asset caching failed")
		return false
	}
	if source != "" {
		c.done[source] = a.URL
	}
	c.stats.cached++
	return true
}

// makeDurable caches a freshly produced asset before it replaces a previous one.
func (pl *Pipeline) makeDurable(ctx context.Context, pc *ProjectContext, stage domain.Stage, a *domain.AssetRef, sceneID string) error {
	if !pl.newCacher(pc, stage).ensure(ctx, a, sceneID) {
		return fmt.Errorf("new %s could not be stored: %w", a.Kind, domain.ErrNotDurable)
	}
	return nil
}

func (c *cacher) upload(ctx context.Context, a *domain.AssetRef) error {
	if c.pl.store == nil {
		return fmt.Errorf("no object store configured")
	}
	data, contentType := a.Data, a.ContentType
	if len(data) == 0 {
		fetched, fetchedType, err := c.pl.fetcher.Fetch(ctx, a.URL)
		if err != nil {
			return err
		}
		data = fetched
		if contentType == "" {
			contentType = fetchedType
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("asset has no content")
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	stored, err := c.pl.store.Put(ctx, data, storage.Key(c.pc.Project.ID, a.Kind, data, contentType), contentType)
	if err != nil {
		return err
	}
	a.URL = stored
	a.ContentType = contentType
	a.Data = nil
	a.Durable = true
	return nil
}

// forEachAsset visits every asset reference the renderer may consume.
func forEachAsset(p *domain.VideoProject, fn func(a *domain.AssetRef, sceneID string)) {
	fn(p.Assets.Voiceover, "")
	fn(p.Assets.Music, "")
	fn(p.Product, "")
	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.Background != nil {
			fn(&s.Background.Asset, s.ID)
		}
		if s.Overlays.Product != nil && s.Overlays.Product.Enabled {
			fn(&s.Overlays.Product.Asset, s.ID)
		}
		if s.Overlays.Logo != nil && s.Overlays.Logo.Enabled {
			fn(&s.Overlays.Logo.Asset, s.ID)
		}
		for _, cue := range s.Sound.Cues() {
			fn(cue.Asset, s.ID)
		}
	}
}

// cacheProject uploads every non-durable asset of the project.
func (pl *Pipeline) cacheProject(ctx context.Context, pc *ProjectContext, stage domain.Stage) cacheStats {
	c := pl.newCacher(pc, stage)
	forEachAsset(pc.Project, func(a *domain.AssetRef, sceneID string) {
		c.ensure(ctx, a, sceneID)
	})
	pc.Project.RefreshAssets()
	return c.stats
}

func (pl *Pipeline) stageAssetCaching(ctx context.Context, pc *ProjectContext) (domain.StageStatus, string) {
	if pl.store == nil {
		return domain.StageError, "no object store configured"
	}
	st := pl.cacheProject(ctx, pc, domain.StageAssetCaching)
	return domain.StageComplete, fmt.Sprintf("%d cached, %d already durable, %d failed", st.cached, st.durable, st.failed)
}
