// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/lekka-app/lekka/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	var rErr *shared.ReferentialError
	var pErr *shared.PersistenceError
	switch {
	case errors.As(err, &vErr):
		WriteProblem(w, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: vErr.Message,
			Field:  vErr.Field,
		})
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthenticated", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.As(err, &rErr):
		Problem(w, http.StatusConflict, "Referenced", rErr.Message)
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrNotConfigured):
		Problem(w, http.StatusServiceUnavailable, "Unavailable", "feature is not configured")
	case errors.As(err, &pErr):
		Problem(w, http.StatusInternalServerError, "Persistence Error", pErr.Message)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// StatusFor returns the status code RespondError would write for err.
func StatusFor(err error) int {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case shared.IsReferential(err), errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
