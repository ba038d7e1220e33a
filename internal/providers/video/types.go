// Package video adapts stock footage search and async video jobs into
// fallback chain providers.
package video

import (
	"errors"

	"studio/internal/domain"
	"studio/internal/fallback"
)

// Provider is a video chain entry.
type Provider = fallback.Provider[domain.GenerationRequest, domain.AssetRef]

// Screen reports whether a stock candidate may be used.
type Screen func(domain.AssetRef) bool

// ErrNoCandidates is returned when a search yields nothing usable.
var ErrNoCandidates = errors.New("no acceptable video candidates")
