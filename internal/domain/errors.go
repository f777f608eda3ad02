// Package domain holds the error taxonomy shared by the service layer and the
// HTTP handlers.
package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors, matched with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrUnauthorized         = errors.New("unauthorized")
)

type (
	// NotFoundError indicates the identifier has no matching record.
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates a missing or malformed field.
	ValidationError struct {
		Message string
	}

	// UnsupportedMediaTypeError indicates an upload whose extension is not
	// allowed for its field.
	UnsupportedMediaTypeError struct {
		Field   string
		Message string
	}

	// PayloadTooLargeError indicates the request body exceeded the limit.
	PayloadTooLargeError struct {
		Limit   int64
		Message string
	}

	// UnauthorizedError indicates a login or token failure.
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string             { return e.Message }
func (e *ValidationError) Error() string           { return e.Message }
func (e *UnsupportedMediaTypeError) Error() string { return e.Message }
func (e *PayloadTooLargeError) Error() string      { return e.Message }
func (e *UnauthorizedError) Error() string         { return e.Message }

func (e *NotFoundError) StatusCode() int             { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int           { return http.StatusBadRequest }
func (e *UnsupportedMediaTypeError) StatusCode() int { return http.StatusUnsupportedMediaType }
func (e *PayloadTooLargeError) StatusCode() int      { return http.StatusRequestEntityTooLarge }
func (e *UnauthorizedError) StatusCode() int         { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool             { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool           { return target == ErrValidation }
func (e *UnsupportedMediaTypeError) Is(target error) bool { return target == ErrUnsupportedMediaType }
func (e *PayloadTooLargeError) Is(target error) bool      { return target == ErrPayloadTooLarge }
func (e *UnauthorizedError) Is(target error) bool         { return target == ErrUnauthorized }

// StatusCode returns the HTTP status for err, or 500 when err carries none.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusInternalServerError
}
