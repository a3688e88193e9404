package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxPageBytes = 8 << 20

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// HTTPManager fetches pages with a plain HTTP client. It never holds a session.
type HTTPManager struct {
	client    *http.Client
	userAgent string
}

// NewHTTPManager builds a session-less manager.
func NewHTTPManager(client *http.Client) *HTTPManager {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPManager{client: client, userAgent: defaultUserAgent}
}

// Create always fails; callers continue in unauthenticated mode.
func (m *HTTPManager) Create(context.Context) (*Handle, error) {
	return nil, ErrNoSession
}

// Fetch performs a GET and returns the body.
func (m *HTTPManager) Fetch(ctx context.Context, url string, _ *Handle) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}

// Destroy is a no-op.
func (m *HTTPManager) Destroy(context.Context, *Handle) error {
	return nil
}

var _ Manager = (*HTTPManager)(nil)
