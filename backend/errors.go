package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrUnavailable wraps transport failures: the backend could not be
	// reached or did not answer in time.
	ErrUnavailable = errors.New("backend: unavailable")

	// ErrNotFound matches an *APIError with status 404.
	ErrNotFound = errors.New("backend: not found")
)

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend: %d %s: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// IsTransient reports whether err is worth retrying: the backend was
// unreachable, the breaker is open, or the backend failed on its side.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	return false
}
