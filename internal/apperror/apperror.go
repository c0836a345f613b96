// Package apperror holds the error taxonomy shared by the ledger, the streak
// engine and the HTTP layer. Callers classify with errors.Is against the
// sentinels; the wrapped cause stays reachable through Unwrap.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConflict  = errors.New("conflict")
	ErrNotFound  = errors.New("not found")
	ErrTransient = errors.New("transient io error")
	ErrInvariant = errors.New("invariant violation")
)

type AppError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func Conflict(resource, key string) *AppError {
	return &AppError{
		Kind:    ErrConflict,
		Message: fmt.Sprintf("%s already exists for %s", resource, key),
	}
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%s not found for %s", resource, key),
	}
}

// Transient wraps a remote call failure (network, backend unavailable).
// The core never retries these.
func Transient(op string, cause error) *AppError {
	return &AppError{
		Kind:    ErrTransient,
		Message: op,
		Cause:   cause,
	}
}

func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// HTTPStatus maps an error to the status code the API replies with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsConflict(err):
		return http.StatusConflict
	case IsNotFound(err):
		return http.StatusNotFound
	case IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
