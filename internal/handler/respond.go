package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"conscience-engine/internal/engine"
	"conscience-engine/internal/pkg/lock"
	"conscience-engine/internal/repository"
	"conscience-engine/internal/scenario"
	"conscience-engine/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrInvalidChoice),
		errors.Is(err, service.ErrEmptyUserID):
		return http.StatusBadRequest
	case errors.Is(err, scenario.ErrMalformedScenario),
		errors.Is(err, engine.ErrInvalidJournal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scenario.ErrUnknownScenario),
		errors.Is(err, scenario.ErrUnknownChapter),
		errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrScenarioLocked):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrNoPlaythrough),
		errors.Is(err, engine.ErrChapterMismatch),
		errors.Is(err, engine.ErrScenarioMismatch):
		return http.StatusConflict
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		msg = "internal error"
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, errorBody{Error: msg})
}
