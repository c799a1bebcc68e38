package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gosuda/pixelboard/internal/domain"
)

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Is matches domain.ErrHTTPStatus for every status and domain.ErrCooldown for
// the statuses the backend uses to signal write backoff.
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrHTTPStatus:
		return true
	case domain.ErrCooldown:
		return e.StatusCode == http.StatusNotAcceptable || e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
