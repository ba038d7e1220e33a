package quality

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"studio/internal/domain"
)

// ErrInvalidAnalysis reports an analyzer response that failed schema checks.
var ErrInvalidAnalysis = errors.New("invalid analysis")

// Framing values reported by the analyzer.
const (
	FramingExtremeCloseUp = "extreme_close_up"
	FramingCloseUp        = "close_up"
	FramingMedium         = "medium"
	FramingWide           = "wide"
	FramingExtremeWide    = "extreme_wide"
)

var validFraming = map[string]bool{
	FramingExtremeCloseUp: true,
	FramingCloseUp:        true,
	FramingMedium:         true,
	FramingWide:           true,
	FramingExtremeWide:    true,
}

var validSeverity = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

type rawArtifact struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

type rawAnalysis struct {
	Technical          *int          `json:"technical"`
	ContentMatch       *int          `json:"contentMatch"`
	BrandCompliance    *int          `json:"brandCompliance"`
	Composition        *int          `json:"composition"`
	TextDetected       *bool         `json:"textDetected"`
	Framing            *string       `json:"framing"`
	EnvironmentVisible *bool         `json:"environmentVisible"`
	Artifacts          []rawArtifact `json:"artifacts"`
	Issues             []string      `json:"issues"`
}

// Analysis is a decoded, validated analyzer response.
type Analysis struct {
	Technical          int
	ContentMatch       int
	BrandCompliance    *int
	Composition        int
	TextDetected       bool
	Framing            string
	EnvironmentVisible bool
	Artifacts          []domain.Artifact
	Issues             []string
}

// extractObject returns the first balanced {...} block in s, honouring
// string literals and escapes.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Decode extracts and validates an analysis from free-form model output.
// brandRequired makes brandCompliance mandatory.
func Decode(raw string, brandRequired bool) (Analysis, error) {
	block, ok := extractObject(raw)
	if !ok {
		return Analysis{}, fmt.Errorf("%w: no JSON object in response", ErrInvalidAnalysis)
	}
	var r rawAnalysis
	if err := json.Unmarshal([]byte(block), &r); err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}

	scores := []struct {
		name  string
		value *int
		need  bool
	}{
		{"technical", r.Technical, true},
		{"contentMatch", r.ContentMatch, true},
		{"brandCompliance", r.BrandCompliance, brandRequired},
		{"composition", r.Composition, true},
	}
	for _, s := range scores {
		if s.value == nil {
			if s.need {
				return Analysis{}, fmt.Errorf("%w: missing %s", ErrInvalidAnalysis, s.name)
			}
			continue
		}
		if *s.value < 0 || *s.value > 100 {
			return Analysis{}, fmt.Errorf("%w: %s out of range: %d", ErrInvalidAnalysis, s.name, *s.value)
		}
	}
	if r.TextDetected == nil {
		return Analysis{}, fmt.Errorf("%w: missing textDetected", ErrInvalidAnalysis)
	}
	if r.EnvironmentVisible == nil {
		return Analysis{}, fmt.Errorf("%w: missing environmentVisible", ErrInvalidAnalysis)
	}
	if r.Framing == nil || !validFraming[*r.Framing] {
		return Analysis{}, fmt.Errorf("%w: invalid framing", ErrInvalidAnalysis)
	}
	for _, a := range r.Artifacts {
		if strings.TrimSpace(a.Type) == "" || !validSeverity[a.Severity] {
			return Analysis{}, fmt.Errorf("%w: invalid artifact %q/%q", ErrInvalidAnalysis, a.Type, a.Severity)
		}
	}

	a := Analysis{
		Technical:          *r.Technical,
		ContentMatch:       *r.ContentMatch,
		Composition:        *r.Composition,
		TextDetected:       *r.TextDetected,
		Framing:            *r.Framing,
		EnvironmentVisible: *r.EnvironmentVisible,
		Issues:             r.Issues,
	}
	for _, art := range r.Artifacts {
		a.Artifacts = append(a.Artifacts, domain.Artifact{Type: art.Type, Severity: art.Severity})
	}
	if brandRequired {
		v := *r.BrandCompliance
		a.BrandCompliance = &v
	}
	return a, nil
}
