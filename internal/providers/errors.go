// Package providers holds helpers shared by the generation provider clients.
package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"studio/internal/domain"
)

// StatusError converts a non-2xx response into an error that wraps
// domain.ErrQuotaExceeded for billing/quota responses and
// domain.ErrProviderFailure otherwise.
func StatusError(service string, status int, body []byte) error {
	msg := errorMessage(body)
	if isQuotaStatus(status, msg) {
		return fmt.Errorf("%s: status %d: %s: %w", service, status, msg, domain.ErrQuotaExceeded)
	}
	return fmt.Errorf("%s: status %d: %s: %w", service, status, msg, domain.ErrProviderFailure)
}

func isQuotaStatus(status int, msg string) bool {
	if status == http.StatusPaymentRequired {
		return true
	}
	lower := strings.ToLower(msg)
	if status == http.StatusTooManyRequests || status == http.StatusForbidden {
		for _, marker := range []string{"quota", "billing", "credit", "resource_exhausted", "insufficient"} {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

// errorMessage pulls a human-readable message out of common error envelopes.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "empty response"
	}
	var envelope struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
		Error   any    `json:"error"`
		Detail  any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch e := envelope.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				if s, ok := e["status"].(string); ok && s != "" {
					return s + ": " + m
				}
				return m
			}
		}
		if envelope.Message != "" {
			if c, ok := envelope.Code.(string); ok && c != "" {
				return envelope.Message + " (" + c + ")"
			}
			return envelope.Message
		}
		if d, ok := envelope.Detail.(string); ok && d != "" {
			return d
		}
	}
	if len(trimmed) > 300 {
		trimmed = trimmed[:300]
	}
	return trimmed
}

// Failed wraps err as a provider failure unless it is already classified.
func Failed(service string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", service, wrapUnclassified(err))
}

func wrapUnclassified(err error) error {
	if isClassified(err) {
		return err
	}
	return fmt.Errorf("%v: %w", err, domain.ErrProviderFailure)
}

func isClassified(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded) || errors.Is(err, domain.ErrProviderFailure) || errors.Is(err, domain.ErrProviderNotReady)
}
