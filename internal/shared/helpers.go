// Package shared provides small helpers used by more than one package.
package shared

import (
	"fmt"
	"net/http"
)

// StatusError describes a non-2xx response from a registry endpoint.
// Body is a trimmed excerpt and may be empty.
type StatusError struct {
	Status int
	URL    string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status=%d url=%s", e.Status, e.URL)
	}
	return fmt.Sprintf("status=%d url=%s response=%s", e.Status, e.URL, e.Body)
}

// RetryableStatus reports whether a response status is worth another
// attempt: server errors and throttling.
func RetryableStatus(status int) bool {
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}
