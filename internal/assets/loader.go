// Package assets warms media for the slide after the current one and reports
// when it is ready to show.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Loader fetches one asset so later requests for it are served warm
type Loader interface {
	Load(ctx context.Context, url string) error
}

// HTTPLoader loads an asset with a GET request and drains the body
type HTTPLoader struct {
	client *http.Client
}

// NewHTTPLoader creates a new HTTP loader
func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{
		client: &http.Client{Timeout: timeout},
	}
}

// Load performs the GET request
func (l *HTTPLoader) Load(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("failed to read asset: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("asset returned status %d", resp.StatusCode)
	}
	return nil
}
