package validation

import (
	"strings"
	"sync"

	"studio/internal/domain"
)

// UsedSet tracks asset URLs already consumed by one project.
type UsedSet struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// NewUsedSet returns an empty set.
func NewUsedSet() *UsedSet {
	return &UsedSet{urls: make(map[string]struct{})}
}

// SeedFromProject marks every scene background already attached to p. Product
// and logo overlays repeat across scenes and are not tracked.
func (u *UsedSet) SeedFromProject(p *domain.VideoProject) {
	for _, s := range p.Scenes {
		if s.Background != nil {
			u.Mark(s.Background.Asset.URL)
		}
	}
}

// Mark records url as used.
func (u *UsedSet) Mark(url string) {
	key := strings.TrimSpace(url)
	if key == "" {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.urls[key] = struct{}{}
}

// Release forgets url, e.g. when a replacement makes it available again.
func (u *UsedSet) Release(url string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.urls, strings.TrimSpace(url))
}

// Has reports whether url was used.
func (u *UsedSet) Has(url string) bool {
	key := strings.TrimSpace(url)
	if key == "" {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.urls[key]
	return ok
}

// Len returns the number of tracked URLs.
func (u *UsedSet) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.urls)
}
