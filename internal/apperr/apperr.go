// Package apperr defines the error taxonomy shared by the store, the services
// and the HTTP layer. Callers classify errors with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound covers both absent rows and rows outside the caller's scope.
	// The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the role has no scope at all for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput is returned for missing fields and bad enum values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrReactivationNotAllowed is returned when an inactive tenant would become active.
	ErrReactivationNotAllowed = errors.New("inactive tenant cannot be reactivated")

	// ErrConflict is returned for duplicate unique keys.
	ErrConflict = errors.New("already exists")
)

var (
	ErrInvalidFlat       = fmt.Errorf("%w: flat does not belong to the society", ErrInvalidInput)
	ErrInvalidType       = fmt.Errorf("%w: unrecognized bill type", ErrInvalidInput)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrInvalidInput)
)

// Invalid returns an ErrInvalidInput with a description of the offending field.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Status maps an error to the HTTP status code reported to clients.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrReactivationNotAllowed):
		return http.StatusConflict
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message safe to show a client. Unclassified errors are
// reported generically so internal detail never leaks.
func Public(err error) string {
	if Status(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}
