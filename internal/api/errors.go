package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/engram-srs/engram/internal/service/forecast"
	"github.com/engram-srs/engram/internal/service/scheduler"
	"github.com/engram-srs/engram/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, scheduler.ErrCardNotFound),
		errors.Is(err, scheduler.ErrDeckNotFound),
		errors.Is(err, scheduler.ErrSessionNotFound),
		errors.Is(err, forecast.ErrDeckNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, scheduler.ErrInvalidRating),
		errors.Is(err, forecast.ErrInvalidHorizon),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Conflicts
	case errors.Is(err, store.ErrDuplicateEntity):
		return http.StatusConflict

	// Special cases: an exhausted quota is a normal outcome
	case errors.Is(err, scheduler.ErrNoCardAvailable):
		return http.StatusNoContent

	// Persistence unavailable
	case errors.Is(err, store.ErrNotInitialized):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal
// details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, scheduler.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, scheduler.ErrDeckNotFound),
		errors.Is(err, forecast.ErrDeckNotFound):
		return "Deck not found"

	case errors.Is(err, scheduler.ErrSessionNotFound):
		return "Session not found"

	case errors.Is(err, scheduler.ErrInvalidRating):
		return "Invalid rating"

	case errors.Is(err, forecast.ErrInvalidHorizon):
		return "Invalid forecast horizon"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, store.ErrDuplicateEntity):
		return "Entity already exists"

	case errors.Is(err, store.ErrNotInitialized):
		return "Service temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation
// errors and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'RateRequest.Rating' Error:Field
		// validation for 'Rating' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid identifier format"
	default:
		return "validation failed"
	}
}
