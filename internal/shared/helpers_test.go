package shared

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusError(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &StatusError{Status: http.StatusNotFound, URL: "http://r/v1/index"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, "status=404 url=http://r/v1/index", statusErr.Error())

	withBody := &StatusError{Status: http.StatusBadGateway, URL: "http://r", Body: "upstream down"}
	assert.Equal(t, "status=502 url=http://r response=upstream down", withBody.Error())
}

func TestRetryableStatus(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusOK:                  false,
		http.StatusNotFound:            false,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	} {
		assert.Equal(t, want, RetryableStatus(status), "status %d", status)
	}
}
