package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRemoteManager_Lifecycle(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/sessions":
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "abc", "connect_url": "wss://x"}})
		case r.Method == http.MethodPost && r.URL.Path == "/sessions/abc/fetch":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"html": "<p>" + body["url"] + "</p>"}})
		case r.Method == http.MethodPost && r.URL.Path == "/fetch":
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"html": "anon"}})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/sessions/"):
			deleted = strings.TrimPrefix(r.URL.Path, "/sessions/")
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	m, err := NewRemoteManager(server.Client(), server.URL+"/", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	h, err := m.Create(ctx)
	if err != nil || h.ID != "abc" || h.ConnectURL != "wss://x" {
		t.Fatalf("unexpected create result: %+v %v", h, err)
	}
	html, err := m.Fetch(ctx, "https://listings.test/p1", h)
	if err != nil || html != "<p>https://listings.test/p1</p>" {
		t.Fatalf("unexpected fetch result: %q %v", html, err)
	}
	html, err = m.Fetch(ctx, "https://listings.test/p1", nil)
	if err != nil || html != "anon" {
		t.Fatalf("unexpected anonymous fetch: %q %v", html, err)
	}
	if err := m.Destroy(ctx, h); err != nil {
		t.Fatalf("unexpected destroy error: %v", err)
	}
	if deleted != "abc" {
		t.Fatalf("expected session abc to be deleted, got %q", deleted)
	}
}

func TestRemoteManager_ErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "quota exceeded"})
	}))
	defer server.Close()

	m, _ := NewRemoteManager(server.Client(), server.URL, 0)
	_, err := m.Create(context.Background())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestNewRemoteManager_RequiresBaseURL(t *testing.T) {
	if _, err := NewRemoteManager(http.DefaultClient, " ", 0); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func TestNewRemoteManager_DefaultClientIsBounded(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/nonexistent/credentials.json")

	for _, base := range []string{"http://scraper.internal:8080", "https://scraper.example.run.app"} {
		m, err := NewRemoteManager(nil, base, 7*time.Second)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", base, err)
		}
		if m.client == nil || m.client.Timeout != 7*time.Second {
			t.Fatalf("expected a 7s client timeout for %s, got %+v", base, m.client)
		}
	}

	m, _ := NewRemoteManager(nil, "http://scraper.internal", 0)
	if m.client.Timeout != defaultRemoteTimeout {
		t.Fatalf("expected default timeout, got %s", m.client.Timeout)
	}

	own := &http.Client{}
	m, _ = NewRemoteManager(own, "https://scraper.example.run.app", time.Second)
	if m.client != own || own.Timeout != 0 {
		t.Fatalf("a supplied client must be used untouched")
	}
}

func TestExtractRemoteError(t *testing.T) {
	if msg := extractRemoteError(strings.NewReader(`{"error":"boom"}`)); msg != "boom" {
		t.Fatalf("expected boom, got %s", msg)
	}
	if msg := extractRemoteError(strings.NewReader(`not-json`)); msg != "not-json" {
		t.Fatalf("expected raw body, got %s", msg)
	}
	if msg := extractRemoteError(strings.NewReader("")); msg != "scraper returned an error" {
		t.Fatalf("expected default message, got %s", msg)
	}
}

func TestHTTPManager(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	m := NewHTTPManager(server.Client())
	if _, err := m.Create(context.Background()); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	html, err := m.Fetch(context.Background(), server.URL+"/page", nil)
	if err != nil || html != "<html>ok</html>" {
		t.Fatalf("unexpected fetch result: %q %v", html, err)
	}
	if _, err := m.Fetch(context.Background(), server.URL+"/missing", nil); err == nil {
		t.Fatalf("expected error for 404")
	}
}
