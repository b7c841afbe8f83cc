// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/voicebot/voicebot/internal/shared"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, shared.ErrNotCaptured), errors.Is(err, shared.ErrGenerationRunning), errors.Is(err, shared.ErrAlreadySynthesized):
		return http.StatusConflict
	case errors.Is(err, shared.ErrSessionMissing), errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to RFC7807 responses carrying a toast.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	toast := shared.ToastFor(err)
	detail := ""
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	JSON(w, status, ProblemDetail{
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Toast:  &toast,
	})
}
