// Package brand matches uploaded brand assets against scene context.
package brand

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"studio/internal/domain"
)

// Score weights per matched term.
const (
	keywordScore = 10
	entityScore  = 15
	contextScore = 5
)

// Match is a scored registry hit.
type Match struct {
	Asset   domain.BrandAsset
	Score   int
	Matched []string
}

// Registry indexes a project's brand assets.
type Registry struct {
	assets []domain.BrandAsset
}

// NewRegistry builds a registry from a brand kit.
func NewRegistry(kit domain.BrandKit) *Registry {
	return &Registry{assets: append([]domain.BrandAsset(nil), kit.Assets...)}
}

// Len returns the number of registered assets.
func (r *Registry) Len() int { return len(r.assets) }

// Logo returns the first registered logo.
func (r *Registry) Logo() (domain.BrandAsset, bool) {
	for _, a := range r.assets {
		if a.Kind == domain.BrandLogo {
			return a, true
		}
	}
	return domain.BrandAsset{}, false
}

// Lookup scores assets of the given kinds against text and returns matches
// with a positive score, best first. An empty kinds list matches every kind.
func (r *Registry) Lookup(text string, kinds ...domain.BrandAssetKind) []Match {
	haystack := " " + strings.Join(strings.Fields(cases.Fold().String(text)), " ") + " "
	var out []Match
	for _, a := range r.assets {
		if !kindAllowed(a.Kind, kinds) {
			continue
		}
		m := Match{Asset: a}
		m.add(haystack, a.Keywords, keywordScore)
		m.add(haystack, a.Entities, entityScore)
		m.add(haystack, a.Contexts, contextScore)
		if m.Score > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Best returns the top match for text.
func (r *Registry) Best(text string, kinds ...domain.BrandAssetKind) (Match, bool) {
	matches := r.Lookup(text, kinds...)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

func (m *Match) add(haystack string, terms []string, weight int) {
	for _, term := range terms {
		t := strings.Join(strings.Fields(cases.Fold().String(term)), " ")
		if t == "" {
			continue
		}
		if strings.Contains(haystack, " "+t+" ") {
			m.Score += weight
			m.Matched = append(m.Matched, term)
		}
	}
}

func kindAllowed(k domain.BrandAssetKind, kinds []domain.BrandAssetKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}
