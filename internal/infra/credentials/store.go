// Package credentials keeps provider API keys in the integration token table.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const (
	ProviderGemini    = "gemini"
	ProviderDashScope = "dashscope"
	ProviderPexels    = "pexels"
	ProviderMediaJobs = "mediajobs"
	ProviderTTS       = "tts"
)

// Providers lists every provider whose key can be stored.
var Providers = []string{ProviderGemini, ProviderDashScope, ProviderPexels, ProviderMediaJobs, ProviderTTS}

// IsKnown reports whether provider can be stored.
func IsKnown(provider string) bool {
	for _, p := range Providers {
		if p == provider {
			return true
		}
	}
	return false
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetToken stores key for provider, replacing any previous value.
func (s *Store) SetToken(ctx context.Context, provider, key string, props map[string]any) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !IsKnown(provider) {
		return fmt.Errorf("unsupported provider %q", provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%s api key is required", provider)
	}
	return s.upsert(ctx, provider, key, props)
}

// Apply fills provider keys missing from cfg with stored tokens. Keys set in
// the environment take precedence.
func (s *Store) Apply(ctx context.Context, cfg *infra.Config) error {
	targets := map[string]*infra.ProviderConfig{
		ProviderGemini:    &cfg.Gemini,
		ProviderDashScope: &cfg.DashScope,
		ProviderPexels:    &cfg.Pexels,
		ProviderMediaJobs: &cfg.MediaJobs,
		ProviderTTS:       &cfg.TTS,
	}
	for _, provider := range Providers {
		target := targets[provider]
		if strings.TrimSpace(target.APIKey) != "" {
			continue
		}
		token, err := s.Token(ctx, provider)
		if err != nil {
			return fmt.Errorf("load %s token: %w", provider, err)
		}
		target.APIKey = token
	}
	return nil
}

// Entry describes a stored key without exposing it.
type Entry struct {
	Provider  string
	Model     string
	UpdatedAt time.Time
}

// List returns every stored provider in name order.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QListIntegrationTokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Provider, &e.Model, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes the stored key for provider. It reports whether a key existed.
func (s *Store) Delete(ctx context.Context, provider string) (bool, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !IsKnown(provider) {
		return false, fmt.Errorf("unsupported provider %q", provider)
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
