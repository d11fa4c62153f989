// Package apperr defines the error kinds shared by every clinic service and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrNotFound reports that a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation reports input rejected before any mutation took place.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable reports a record-store call that failed in transit.
	ErrUnavailable = errors.New("record store unavailable")
	// ErrUnauthorized reports rejected credentials or a missing session.
	ErrUnauthorized = errors.New("unauthorized")
)

// Validation returns an ErrValidation carrying a formatted reason.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Unavailable wraps a store failure for operation op.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// StatusCode maps an error kind onto an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into an echo HTTP error. Internal failures are not echoed
// back to the client.
func HTTP(err error) *echo.HTTPError {
	code := StatusCode(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error())
}
