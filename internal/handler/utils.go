package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"FarmMonitorAPI/internal/auth"
	"FarmMonitorAPI/internal/models"
	"FarmMonitorAPI/internal/notify"
	"FarmMonitorAPI/internal/repository"
	"FarmMonitorAPI/internal/service"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return
	}
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// decodeJSON reads a JSON body into v. An empty body is accepted when
// allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRule),
		errors.Is(err, models.ErrInvalidThreshold),
		errors.Is(err, service.ErrUnknownSensor),
		errors.Is(err, service.ErrInvalidReading),
		errors.Is(err, repository.ErrInvalidResolveTime),
		errors.Is(err, notify.ErrInvalidSettings):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrRuleNotFound),
		errors.Is(err, repository.ErrThresholdNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, repository.ErrRuleExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// actorFor names who performed a lifecycle action. With authentication
// enabled it is always the token holder; otherwise the requested name is
// used when given.
func actorFor(r *http.Request, requested string) string {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return requested
	}
	if id.Anonymous && requested != "" {
		return requested
	}
	return id.Actor()
}
