package intent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/octobees/leads-discovery/internal/llm"
)

type stubGeo struct {
	loc   string
	err   error
	calls int
}

func (g *stubGeo) Locate(context.Context, netip.Addr) (string, error) {
	g.calls++
	return g.loc, g.err
}

func TestResolve_ExplicitLocation(t *testing.T) {
	model := llm.NewScripted().Reply("query_intent", `{"has_location":true,"location":"Chicago, IL","search_term":"law firms"}`)
	geo := &stubGeo{loc: "Denver, CO"}
	r := NewResolver(model, geo, "", nil)

	res := r.Resolve(context.Background(), "law firms in Chicago", "8.8.8.8")
	want := Resolution{SearchTerm: "law firms", Location: "Chicago, IL", HadExplicitLocation: true}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
	if geo.calls != 0 {
		t.Fatalf("geolocation must not run when the query names a location")
	}
	if !strings.Contains(model.Requests[0].Prompt, "law firms in Chicago") {
		t.Fatalf("expected raw query in prompt, got %q", model.Requests[0].Prompt)
	}
}

func TestResolve_NoLocationUsesOrigin(t *testing.T) {
	model := llm.NewScripted().Reply("query_intent", `{"has_location":false,"location":"","search_term":"dentists"}`)
	r := NewResolver(model, &stubGeo{loc: "Austin, TX"}, "", nil)

	res := r.Resolve(context.Background(), "best dentists near me", "8.8.8.8")
	if res.SearchTerm != "dentists" || res.Location != "Austin, TX" || res.HadExplicitLocation {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolve_ModelFailureDegradesToVerbatim(t *testing.T) {
	model := llm.NewScripted().Fail("query_intent", errors.New("timeout"))
	r := NewResolver(model, &stubGeo{err: errors.New("down")}, "", nil)

	res := r.Resolve(context.Background(), "  plumbers in Boston  ", "8.8.8.8")
	want := Resolution{SearchTerm: "plumbers in Boston", Location: DefaultLocation}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
}

func TestResolve_PrivateOriginUsesDefault(t *testing.T) {
	geo := &stubGeo{loc: "Somewhere"}
	r := NewResolver(nil, geo, "Canada", nil)

	for _, origin := range []string{"", "127.0.0.1", "10.1.2.3", "192.168.0.5:4000", "::1", "not-an-ip"} {
		res := r.Resolve(context.Background(), "cafes", origin)
		if res.Location != "Canada" || res.SearchTerm != "cafes" {
			t.Fatalf("origin %q: unexpected resolution %+v", origin, res)
		}
	}
	if geo.calls != 0 {
		t.Fatalf("expected no geolocation for private origins, got %d calls", geo.calls)
	}
}

func TestPublicAddr(t *testing.T) {
	tests := map[string]bool{
		"8.8.8.8":            true,
		"1.1.1.1:443":        true,
		"::ffff:8.8.4.4":     true,
		"2001:4860:4860::88": true,
		"172.16.0.1":         false,
		"169.254.1.1":        false,
		"0.0.0.0":            false,
		"":                   false,
	}
	for in, want := range tests {
		if _, got := PublicAddr(in); got != want {
			t.Fatalf("PublicAddr(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIPAPI_Locate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/8.8.8.8":
			w.Write([]byte(`{"status":"success","city":"Mountain View","region":"CA","country":"United States"}`))
		case "/json/1.1.1.1":
			w.Write([]byte(`{"status":"success","country":"Australia"}`))
		default:
			w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		}
	}))
	defer server.Close()

	g := NewIPAPI(server.Client(), server.URL+"/json/")
	loc, err := g.Locate(context.Background(), netip.MustParseAddr("8.8.8.8"))
	if err != nil || loc != "Mountain View, CA" {
		t.Fatalf("unexpected location %q %v", loc, err)
	}
	loc, err = g.Locate(context.Background(), netip.MustParseAddr("1.1.1.1"))
	if err != nil || loc != "Australia" {
		t.Fatalf("expected country fallback, got %q %v", loc, err)
	}
	if _, err := g.Locate(context.Background(), netip.MustParseAddr("9.9.9.9")); err == nil {
		t.Fatalf("expected failure status to be an error")
	}
}
