package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrInvalidState     = fmt.Errorf("invalid state parameter")
	ErrCodeConsumed     = fmt.Errorf("authorization code already processed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and playback errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNoActiveDevice     = fmt.Errorf("no active device")
	ErrNoContext          = fmt.Errorf("nothing to advance to")
	ErrQueueEmpty         = fmt.Errorf("local queue is empty")

	// Storage errors
	ErrNotFound = fmt.Errorf("not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrQueryTooLong    = fmt.Errorf("search query too long")
)

// APIError is a non-2xx, non-401 response from the remote API.
type APIError struct {
	Status int
	Body   []byte
}

func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%v: status %d", ErrAPIRequest, e.Status)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrAPIRequest, e.Status, string(e.Body))
}

// Is lets errors.Is(err, ErrAPIRequest) match any [APIError].
func (e *APIError) Is(target error) bool {
	return target == ErrAPIRequest
}

// StatusOf returns the HTTP status carried by an [APIError] in err's chain, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
