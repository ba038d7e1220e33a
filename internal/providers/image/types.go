// Package image adapts image generation and stock photo clients into
// fallback chain providers.
package image

import (
	"errors"

	"studio/internal/domain"
	"studio/internal/fallback"
)

// Provider is an image chain entry.
type Provider = fallback.Provider[domain.GenerationRequest, domain.AssetRef]

// Screen reports whether a stock candidate may be used.
type Screen func(domain.AssetRef) bool

// ErrNoCandidates is returned when a search yields nothing usable.
var ErrNoCandidates = errors.New("no acceptable candidates")
