package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Client defines the transport for one classification backend protocol.
// Complete sends a prompt and returns the backend's raw response text;
// parsing into the classification schema happens in one place above it.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StatusError reports a non-2xx HTTP response from a backend.
type StatusError struct {
	Body string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// rejectedByBackend reports whether the status indicates a request the
// backend will never accept, so retrying is pointless.
func rejectedByBackend(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
		return true
	default:
		return false
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
