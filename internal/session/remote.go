package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/idtoken"
)

// RemoteManager talks to a scraping-browser service over REST.
type RemoteManager struct {
	client  *http.Client
	baseURL string
}

const defaultRemoteTimeout = 30 * time.Second

// NewRemoteManager builds a remote manager. A nil client against an https
// service gets an ID token client; either way requests are cut off after
// timeout. A caller-supplied client is used as is.
func NewRemoteManager(client *http.Client, baseURL string, timeout time.Duration) (*RemoteManager, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("scraper base url must not be empty")
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
		if strings.HasPrefix(strings.ToLower(baseURL), "https://") {
			if idc, err := idtoken.NewClient(context.Background(), baseURL); err == nil {
				idc.Timeout = timeout
				client = idc
			}
		}
	}
	return &RemoteManager{client: client, baseURL: baseURL}, nil
}

type remoteSession struct {
	ID         string `json:"id"`
	ConnectURL string `json:"connect_url"`
}

type remotePage struct {
	HTML string `json:"html"`
}

// Create opens a new session on the remote service.
func (m *RemoteManager) Create(ctx context.Context) (*Handle, error) {
	var out remoteSession
	if err := m.do(ctx, http.MethodPost, "/sessions", map[string]any{}, &out); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("create session: %w", ErrNoSession)
	}
	return &Handle{ID: out.ID, ConnectURL: out.ConnectURL, CreatedAt: time.Now().UTC()}, nil
}

// Fetch loads a page, inside the session when one is given.
func (m *RemoteManager) Fetch(ctx context.Context, pageURL string, h *Handle) (string, error) {
	path := "/fetch"
	if h != nil && h.ID != "" {
		path = "/sessions/" + url.PathEscape(h.ID) + "/fetch"
	}
	var out remotePage
	if err := m.do(ctx, http.MethodPost, path, map[string]string{"url": pageURL}, &out); err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	return out.HTML, nil
}

// Destroy releases the session on the remote service.
func (m *RemoteManager) Destroy(ctx context.Context, h *Handle) error {
	if h == nil || h.ID == "" {
		return nil
	}
	if err := m.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(h.ID), nil, nil); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (m *RemoteManager) do(ctx context.Context, method, path string, payload any, dst any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create scraper request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("scraper request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("scraper error: %s", extractRemoteError(resp.Body))
	}
	if dst == nil {
		return nil
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		return fmt.Errorf("could not decode scraper response: %w", err)
	}
	if envelope.Error != "" {
		return fmt.Errorf("scraper error: %s", envelope.Error)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		return fmt.Errorf("could not decode scraper data: %w", err)
	}
	return nil
}

func extractRemoteError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return "scraper returned an error"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(data)
}

var _ Manager = (*RemoteManager)(nil)
