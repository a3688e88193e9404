package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-discovery/internal/config"
	"github.com/octobees/leads-discovery/internal/handler"
)

func TestRegister(t *testing.T) {
	e := echo.New()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("leads_discovery_requests_total 0\n"))
	})
	Register(e, &config.Config{}, Handlers{
		Discovery: handler.NewDiscoveryHandler(nil, nil),
		Companies: handler.NewCompaniesHandler(nil),
		Metrics:   metrics,
	})

	want := map[string]bool{
		"GET /healthz":                false,
		"GET /metrics":                false,
		"POST /discover":              false,
		"GET /companies":              false,
		"GET /companies/:id/contacts": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Fatalf("expected route %s to be registered", route)
		}
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "leads_discovery_requests_total 0\n" {
		t.Fatalf("unexpected metrics response: %d %q", rec.Code, rec.Body.String())
	}
}
