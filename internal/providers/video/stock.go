package video

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/stock"
)

type videoSearcher interface {
	SearchVideos(context.Context, stock.Query) ([]domain.AssetRef, error)
}

// StockVideos searches stock footage long enough to cover the scene.
type StockVideos struct {
	client videoSearcher
	screen Screen
}

// NewStockVideos wraps a stock client. A nil screen accepts every candidate.
func NewStockVideos(client videoSearcher, screen Screen) *StockVideos {
	return &StockVideos{client: client, screen: screen}
}

func (s *StockVideos) Name() string  { return "pexels:videos" }
func (s *StockVideos) Class() string { return "pexels" }

// Generate fulfils the Provider interface.
func (s *StockVideos) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	var lastErr error
	seen := map[string]bool{}
	for _, q := range []string{req.Query, req.FallbackQuery} {
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		candidates, err := s.client.SearchVideos(ctx, stock.Query{
			Text:        q,
			Orientation: stock.Orientation(req.AspectRatio),
			MinDuration: req.Duration,
		})
		if err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				return domain.AssetRef{}, err
			}
			lastErr = err
			continue
		}
		for _, c := range candidates {
			if s.screen == nil || s.screen(c) {
				c.Source = s.Name()
				return c, nil
			}
		}
	}
	if lastErr != nil {
		return domain.AssetRef{}, lastErr
	}
	return domain.AssetRef{}, fmt.Errorf("pexels: %w for %q: %w", ErrNoCandidates, req.Query, domain.ErrProviderFailure)
}

var _ Provider = (*StockVideos)(nil)
