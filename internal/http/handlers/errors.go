package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// fail maps a domain error onto the HTTP error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	logger := zerolog.Ctx(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = &a.Logger
	}
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("code", code).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("code", code).Msg("request rejected")
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	a.error(w, status, code, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrInvalidProject), errors.Is(err, domain.ErrInvalidScene):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrDuplicateOperation):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrNothingToUndo):
		return http.StatusConflict, "nothing_to_undo"
	case errors.Is(err, domain.ErrNothingToRedo):
		return http.StatusConflict, "nothing_to_redo"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, domain.ErrProviderNotReady):
		return http.StatusServiceUnavailable, "provider_not_configured"
	case errors.Is(err, domain.ErrNotDurable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, domain.ErrProviderFailure):
		return http.StatusBadGateway, "provider_failure"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
