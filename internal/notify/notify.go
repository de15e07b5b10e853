// Package notify delivers fire-and-forget user notifications.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "shelfwise/0.1"

// Notifier requests that a notification be shown. Delivery failure is
// non-fatal; the engine only logs it.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// NewService builds a notifier backed by an ntfy topic URL. When no topic
// is configured, a noop implementation is returned.
func NewService(topicURL string, timeout time.Duration) Notifier {
	topicURL = strings.TrimSpace(topicURL)
	if topicURL == "" {
		return noopNotifier{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyNotifier{
		endpoint: topicURL,
		client:   &http.Client{Timeout: timeout},
	}
}

type ntfyNotifier struct {
	client   *http.Client
	endpoint string
}

func (n *ntfyNotifier) Notify(ctx context.Context, title, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notification endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string) error { return nil }
