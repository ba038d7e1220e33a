// Package storage writes assets to durable storage and decides which URLs
// are safe to hand to the renderer.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"studio/internal/domain"
)

// Store is a durable object store.
type Store interface {
	Put(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// signedParams are query parameters of expiring, pre-signed URLs.
var signedParams = []string{
	"x-amz-signature",
	"x-amz-expires",
	"x-goog-signature",
	"x-goog-expires",
	"signature",
	"expires",
	"se",
	"sig",
	"token",
}

// Policy decides URL durability.
type Policy struct {
	// Trusted prefixes are always durable.
	Trusted []string
	// AllowHTTP accepts plain http URLs; used in development.
	AllowHTTP bool
}

// IsDurable reports whether raw can be consumed by the renderer long after
// the pipeline finishes.
func (p Policy) IsDurable(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	for _, prefix := range p.Trusted {
		if prefix != "" && strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !p.AllowHTTP {
			return false
		}
	default:
		return false
	}
	q := u.Query()
	for key := range q {
		k := strings.ToLower(key)
		for _, sp := range signedParams {
			if k == sp {
				return false
			}
		}
	}
	return true
}

// Resolved is true when the asset already lives at a durable URL and has no
// pending inline bytes.
func (p Policy) Resolved(a domain.AssetRef) bool {
	return len(a.Data) == 0 && p.IsDurable(a.URL)
}

// IsInline reports whether raw is a data: URL.
func IsInline(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(raw)), "data:")
}

// Key builds a content-addressed object key for a project asset.
func Key(projectID string, kind domain.AssetKind, data []byte, contentType string) string {
	sum := sha256.Sum256(data)
	return "projects/" + projectID + "/" + string(kind) + "/" + hex.EncodeToString(sum[:12]) + ExtensionFor(contentType)
}

// ExtensionFor maps common media types to a file extension.
func ExtensionFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".bin"
	}
}
