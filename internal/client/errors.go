package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the API in error response bodies.
const (
	CodeValidation        = "validation_error"
	CodeInvalidTransition = "invalid_transition"
	CodeNotFound          = "not_found"
)

// APIError is an error response from the server. The server reached a
// decision; contrast with network errors where the request outcome is
// unknown.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// NetworkError wraps a transport failure. The request may or may not have
// reached the server.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

func apiError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsValidation reports whether the server rejected the request as malformed.
func IsValidation(err error) bool {
	e, ok := apiError(err)
	return ok && e.Code == CodeValidation
}

// IsInvalidTransition reports whether the server rejected a status change
// as an illegal transition.
func IsInvalidTransition(err error) bool {
	e, ok := apiError(err)
	return ok && e.Code == CodeInvalidTransition
}

// IsNotFound reports whether the resource does not exist.
func IsNotFound(err error) bool {
	e, ok := apiError(err)
	return ok && e.Status == http.StatusNotFound
}

// IsUnauthorized reports whether the token is missing, expired, or invalid.
func IsUnauthorized(err error) bool {
	e, ok := apiError(err)
	return ok && e.Status == http.StatusUnauthorized
}

// IsForbidden reports whether the caller lacks access to the resource.
func IsForbidden(err error) bool {
	e, ok := apiError(err)
	return ok && e.Status == http.StatusForbidden
}

// IsRateLimited reports whether the server throttled the request.
func IsRateLimited(err error) bool {
	e, ok := apiError(err)
	return ok && e.Status == http.StatusTooManyRequests
}

// IsServerError reports whether the server failed internally.
func IsServerError(err error) bool {
	e, ok := apiError(err)
	return ok && e.Status >= 500
}

// IsNetwork reports whether the request failed in transit, meaning the
// outcome on the server is unknown.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
