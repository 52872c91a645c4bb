package httpx

import (
	"errors"
	"net/http"

	"github.com/lit-program/lit-portal/internal/shared"
)

// RespondError maps domain errors to RFC7807 problem responses. User-facing
// errors keep their message; everything else collapses into a generic 500 so
// internals never leak to the client.
func RespondError(w http.ResponseWriter, err error) {
	var userErr *shared.UserError
	switch {
	case errors.As(err, &userErr):
		Problem(w, http.StatusUnprocessableEntity, "Request Rejected", userErr.Message)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrDuplicateEmail):
		Problem(w, http.StatusConflict, "Duplicate", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
