package errs

import (
	"errors"
	"net/http"
)

// Sentinel errors for the consultation core. Handlers map these to HTTP
// status codes; services wrap them with context via fmt.Errorf("%w").
var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("caller is not an authorized party")
	ErrInvalidState     = errors.New("operation not legal from current status")
	ErrConflict         = errors.New("conflicting or duplicate resource")
	ErrRecipientOffline = errors.New("recipient is not connected")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// HTTPStatus returns the status code a handler should respond with for err.
// ErrRecipientOffline is a normal user-visible condition, not a fault, but
// still maps to a non-2xx code so clients can distinguish it.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRecipientOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
