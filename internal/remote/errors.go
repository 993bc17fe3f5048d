package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the backend. Network-level
// failures stay plain wrapped errors; only an HTTP status that arrived
// becomes an APIError.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

// IsAuthError reports whether err is a 401 from the backend, meaning
// the session must be re-established before retrying.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
