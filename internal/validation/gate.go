// Package validation rejects candidate assets that violate audience or
// brand-safety rules, or that were already used in the same project.
package validation

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"studio/internal/domain"
)

// Rule identifies the check that rejected a candidate.
type Rule string

const (
	RuleNone                Rule = ""
	RuleMatureAudienceChild Rule = "mature_audience_child"
	RuleOppositeGender      Rule = "opposite_gender"
	RuleNegativeContent     Rule = "negative_content"
	RuleBrandSafety         Rule = "brand_safety"
	RuleSceneContext        Rule = "scene_context"
	RuleAlreadyUsed         Rule = "already_used"
)

// Candidate is the asset under review. The gate never modifies it.
type Candidate struct {
	URL  string
	Meta domain.AssetMeta
}

// Request carries the audience and brand context of the review.
type Request struct {
	Audience     string
	BrandSafety  []string
	SceneContext string
}

// Decision is the outcome of a review.
type Decision struct {
	Accepted bool   `json:"accepted"`
	Rule     Rule   `json:"rule,omitempty"`
	Term     string `json:"term,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func accept() Decision { return Decision{Accepted: true} }

func reject(rule Rule, term, reason string) Decision {
	return Decision{Rule: rule, Term: term, Reason: reason}
}

// ContextRule bans terms only when the scene context matches a trigger.
type ContextRule struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Banned   []string `yaml:"banned"`
}

// Config holds the vocabularies used by the gate.
type Config struct {
	MatureAudienceTerms []string      `yaml:"mature_audience_terms"`
	ChildTerms          []string      `yaml:"child_terms"`
	FemaleTerms         []string      `yaml:"female_terms"`
	MaleTerms           []string      `yaml:"male_terms"`
	NeutralTerms        []string      `yaml:"neutral_terms"`
	NegativeTerms       []string      `yaml:"negative_terms"`
	ContextRules        []ContextRule `yaml:"context_rules"`
}

// Gate applies the rules in a fixed order.
type Gate struct {
	cfg Config
}

// NewGate builds a gate; empty vocabularies fall back to the defaults.
func NewGate(cfg Config) *Gate {
	d := DefaultConfig()
	if len(cfg.MatureAudienceTerms) == 0 {
		cfg.MatureAudienceTerms = d.MatureAudienceTerms
	}
	if len(cfg.ChildTerms) == 0 {
		cfg.ChildTerms = d.ChildTerms
	}
	if len(cfg.FemaleTerms) == 0 {
		cfg.FemaleTerms = d.FemaleTerms
	}
	if len(cfg.MaleTerms) == 0 {
		cfg.MaleTerms = d.MaleTerms
	}
	if len(cfg.NeutralTerms) == 0 {
		cfg.NeutralTerms = d.NeutralTerms
	}
	if len(cfg.NegativeTerms) == 0 {
		cfg.NegativeTerms = d.NegativeTerms
	}
	if len(cfg.ContextRules) == 0 {
		cfg.ContextRules = d.ContextRules
	}
	return &Gate{cfg: cfg}
}

// Validate reviews one candidate. used may be nil.
func (g *Gate) Validate(c Candidate, req Request, used *UsedSet) Decision {
	content := normalize(c.Meta.Text())
	audience := normalize(req.Audience)

	if match(audience, g.cfg.MatureAudienceTerms) != "" {
		if term := match(content, g.cfg.ChildTerms); term != "" {
			return reject(RuleMatureAudienceChild, term, "child or teen imagery for a mature audience")
		}
	}

	if d := g.checkGender(content, audience); !d.Accepted {
		return d
	}

	if term := match(content, g.cfg.NegativeTerms); term != "" {
		return reject(RuleNegativeContent, term, "matches a global negative-content keyword")
	}
	if term := match(content, SplitKeywords(req.BrandSafety)); term != "" {
		return reject(RuleBrandSafety, term, "matches a brand-safety keyword")
	}
	scene := normalize(req.SceneContext)
	for _, rule := range g.cfg.ContextRules {
		if match(scene, rule.Triggers) == "" {
			continue
		}
		if term := match(content, rule.Banned); term != "" {
			return reject(RuleSceneContext, term, "excluded for "+rule.Name+" scenes")
		}
	}

	if used != nil && used.Has(c.URL) {
		return reject(RuleAlreadyUsed, "", "asset already used in this project")
	}
	return accept()
}

func (g *Gate) checkGender(content, audience string) Decision {
	female := match(audience, g.cfg.FemaleTerms) != ""
	male := match(audience, g.cfg.MaleTerms) != ""
	if female == male {
		return accept()
	}
	same, opposite := g.cfg.FemaleTerms, g.cfg.MaleTerms
	if male {
		same, opposite = g.cfg.MaleTerms, g.cfg.FemaleTerms
	}
	term := match(content, opposite)
	if term == "" || match(content, same) != "" {
		return accept()
	}
	if match(content, g.cfg.NeutralTerms) != "" {
		return accept()
	}
	return reject(RuleOppositeGender, term, "shows only the opposite gender for a single-gender audience")
}

// SplitKeywords splits free-text keyword entries on commas, semicolons and newlines.
func SplitKeywords(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, part := range strings.FieldsFunc(e, func(r rune) bool { return r == ',' || r == ';' || r == '\n' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// normalize folds case and reduces text to space-separated tokens padded with
// spaces so phrases can be matched on word boundaries.
func normalize(s string) string {
	folded := cases.Fold().String(s)
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+'
	})
	return " " + strings.Join(tokens, " ") + " "
}

// match returns the first term found in the normalized text.
func match(text string, terms []string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, term := range terms {
		n := normalize(term)
		if strings.TrimSpace(n) == "" {
			continue
		}
		if strings.Contains(text, n) {
			return strings.TrimSpace(term)
		}
	}
	return ""
}
