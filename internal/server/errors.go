package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/session"
)

// APIError is the JSON body of every failed API request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError builds an APIError with optional details.
func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput    = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrNotFound        = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrTooManyRequests = NewAPIError("TOO_MANY_REQUESTS", "Rate limit exceeded", http.StatusTooManyRequests)
	ErrQueryTooLong    = NewAPIError("QUERY_TOO_LONG", "Query string is too long", http.StatusRequestURITooLong)
	ErrInternal        = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

// Wrap turns err into an APIError, keeping err as details.
func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}

// invalid wraps a client mistake.
func invalid(err error) *APIError {
	return Wrap(err, ErrInvalidInput.Code, ErrInvalidInput.Message, ErrInvalidInput.Status)
}

// editError maps session and style errors to API errors.
func editError(err error) *APIError {
	switch {
	case errors.Is(err, session.ErrUnknownFeature):
		return NewAPIError(ErrNotFound.Code, "Feature not found", http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrTitleRequired),
		errors.Is(err, session.ErrTooltipDisabled),
		errors.Is(err, session.ErrDataIndex),
		errors.Is(err, session.ErrNotPoint),
		errors.Is(err, session.ErrInvalidRadius),
		errors.Is(err, session.ErrUnsupportedFeature),
		errors.Is(err, document.ErrStyleValue),
		errors.Is(err, document.ErrUnknownStyleKey):
		return NewAPIError("INVALID_EDIT", "Edit rejected", http.StatusUnprocessableEntity, err.Error())
	}
	return invalid(err)
}

// writeError writes err as a JSON APIError.
func writeError(w http.ResponseWriter, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = Wrap(err, "UNKNOWN_ERROR", "Unexpected error", ErrInternal.Status)
	}
	if apiErr.Status >= 500 {
		log.Error().
			Str("code", apiErr.Code).
			Str("details", apiErr.Details).
			Msg("Server error")
	}

	writeJSON(w, apiErr.Status, apiErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// client disconnects are not actionable
	_ = json.NewEncoder(w).Encode(v)
}
