package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Use errors.Is to classify an error returned by any package in
// this module.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("auth failure")
	ErrStore      = errors.New("store error")
	ErrProvider   = errors.New("provider error")
)

// Validation returns a 400 error for malformed input.
func Validation(format string, args ...any) *Error {
	return New(fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...)), http.StatusBadRequest)
}

// NotFound returns a 404 error.
func NotFound(format string, args ...any) *Error {
	return New(fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...)), http.StatusNotFound)
}

// Auth returns a 503 error meaning no usable credential is available.
func Auth(err error) *Error {
	return New(fmt.Errorf("%w: %w", ErrAuth, err), http.StatusServiceUnavailable)
}

// Store wraps a persistent store failure.
func Store(err error) *Error {
	if errors.Is(err, ErrStore) {
		return asError(err, http.StatusInternalServerError)
	}
	return New(fmt.Errorf("%w: %w", ErrStore, err), http.StatusInternalServerError)
}

// Provider wraps a failure of an external place-search provider or
// credential issuer.
func Provider(err error) *Error {
	if errors.Is(err, ErrProvider) {
		return asError(err, http.StatusBadGateway)
	}
	return New(fmt.Errorf("%w: %w", ErrProvider, err), http.StatusBadGateway)
}

func asError(err error, status int) *Error {
	var apierr *Error
	if errors.As(err, &apierr) {
		return apierr
	}
	return New(err, status)
}
