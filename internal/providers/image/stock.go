package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"studio/internal/domain"
	"studio/internal/providers/stock"
)

type photoSearcher interface {
	SearchPhotos(context.Context, stock.Query) ([]domain.AssetRef, error)
}

// StockPhotos searches stock photos with the scene query, then the fallback
// query, returning the first candidate the screen accepts.
type StockPhotos struct {
	client photoSearcher
	screen Screen
}

// NewStockPhotos wraps a stock client. A nil screen accepts every candidate.
func NewStockPhotos(client photoSearcher, screen Screen) *StockPhotos {
	return &StockPhotos{client: client, screen: screen}
}

func (s *StockPhotos) Name() string  { return "pexels:photos" }
func (s *StockPhotos) Class() string { return "pexels" }

// Generate fulfils the Provider interface.
func (s *StockPhotos) Generate(ctx context.Context, req domain.GenerationRequest) (domain.AssetRef, error) {
	var lastErr error
	for _, q := range queries(req) {
		candidates, err := s.client.SearchPhotos(ctx, stock.Query{Text: q, Orientation: stock.Orientation(req.AspectRatio)})
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

// queries returns the distinct non-empty search queries for req.
func queries(req domain.GenerationRequest) []string {
	var out []string
	for _, q := range []string{req.Query, req.FallbackQuery} {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		dup := false
		for _, existing := range out {
			if strings.EqualFold(existing, q) {
				dup = true
			}
		}
		if !dup {
			out = append(out, q)
		}
	}
	return out
}

var _ Provider = (*StockPhotos)(nil)
