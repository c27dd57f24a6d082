package riot

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRateLimited is returned once the retry policy gives up on a 429.
	ErrRateLimited  = errors.New("rate limit retries exhausted (429)")
	ErrUnauthorized = errors.New("api key unauthorized (401)")
	ErrForbidden    = errors.New("api key forbidden (403)")
	ErrNotFound     = errors.New("not found (404)")
	ErrUnexpected   = errors.New("unexpected status")
)

// APIError is a non-200 response from the Riot API.
type APIError struct {
	Endpoint   string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API returned status %d", e.Endpoint, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUnexpected
	}
}

// IsAPIKeyError reports whether err means the key itself is no longer usable.
func IsAPIKeyError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}
