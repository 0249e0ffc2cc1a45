package httpx

import (
	"errors"
	"net/http"

	"github.com/tilekart/tilekart/internal/shared"
)

// RespondError maps domain errors to HTTP statuses. Messages for expected
// failures pass through verbatim; anything unanticipated becomes a generic 500
// so store internals never leak to the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}
