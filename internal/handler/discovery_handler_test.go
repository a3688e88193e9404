package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-discovery/internal/discovery"
)

type scriptedDiscoverer struct {
	events []discovery.Event
	got    discovery.Request
	calls  int
}

func (s *scriptedDiscoverer) StartDiscovery(_ context.Context, req discovery.Request) <-chan discovery.Event {
	s.calls++
	s.got = req
	out := make(chan discovery.Event, len(s.events))
	for _, ev := range s.events {
		out <- ev
	}
	close(out)
	return out
}

func postDiscover(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/discover", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "203.0.113.9:40000"
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestDiscoveryHandler_Stream(t *testing.T) {
	disc := &scriptedDiscoverer{events: []discovery.Event{
		{Type: discovery.EventStatus, Stage: discovery.StageCompanies},
		{Type: discovery.EventWarning, Message: "no companies found"},
		{Type: discovery.EventStatus, Stage: discovery.StageComplete},
		{Type: discovery.EventComplete, Counts: &discovery.Counts{}},
	}}
	handler := NewDiscoveryHandler(disc, nil)

	c, rec := postDiscover(`{"query":"  dentists in Chicago  "}`)
	if err := handler.Stream(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if disc.got.Query != "dentists in Chicago" || disc.got.TargetCount != 10 || disc.got.Origin != "203.0.113.9" {
		t.Fatalf("unexpected request: %+v", disc.got)
	}

	var types []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("line is not json: %q", scanner.Text())
		}
		types = append(types, line["type"].(string))
	}
	want := []string{"status", "warning", "status", "complete"}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, types)
	}
}

func TestDiscoveryHandler_Stream_Validation(t *testing.T) {
	disc := &scriptedDiscoverer{}
	handler := NewDiscoveryHandler(disc, nil)

	for _, body := range []string{`{"query":"   "}`, `{"query":"x","target_count":101}`, `{"query":"x","target_count":-1}`, `not json`} {
		c, rec := postDiscover(body)
		if err := handler.Stream(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	if disc.calls != 0 {
		t.Fatalf("expected no discovery to start, got %d", disc.calls)
	}
}
