package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	registry := prometheus.NewRegistry()
	r := New(WithRegistry(registry), WithNamespace("test"))

	r.RequestStarted()
	r.CompanyFound()
	r.CompanyFound()
	r.PatternInferred("fallback")
	r.ContactFound(3)
	r.Warning("companies")
	r.RequestFinished("completed", time.Now().Add(-time.Second))

	if got := testutil.ToFloat64(r.companies); got != 2 {
		t.Fatalf("expected 2 companies, got %v", got)
	}
	if got := testutil.ToFloat64(r.emails); got != 3 {
		t.Fatalf("expected 3 emails, got %v", got)
	}
	if got := testutil.ToFloat64(r.requests.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected 1 completed request, got %v", got)
	}
	if got := testutil.ToFloat64(r.inFlight); got != 0 {
		t.Fatalf("expected no requests in flight, got %v", got)
	}
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	r.RequestStarted()
	r.CompanyFound()
	r.PatternInferred("ai_evidence")
	r.ContactFound(1)
	r.Warning("contacts")
	r.RequestFinished("failed", time.Now())
	if r.Handler() == nil {
		t.Fatalf("expected default handler")
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.CompanyFound()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "leads_discovery_companies_found_total 1") {
		t.Fatalf("expected companies counter in output, got %s", rec.Body.String())
	}
}
