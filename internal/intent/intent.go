// Package intent turns a free-text discovery query into a search term and location.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/llm"
	"github.com/octobees/leads-discovery/internal/logging"
)

// DefaultLocation is used when neither the query nor the caller origin gives one.
const DefaultLocation = "United States"

// Resolution is the outcome of resolving a query.
type Resolution struct {
	SearchTerm          string
	Location            string
	HadExplicitLocation bool
}

// Geolocator maps a public network address to a human readable location.
type Geolocator interface {
	Locate(ctx context.Context, addr netip.Addr) (string, error)
}

// Resolver resolves queries. It never fails.
type Resolver struct {
	model           llm.Model
	geo             Geolocator
	defaultLocation string
	logger          *zap.Logger
}

// NewResolver builds a resolver. geo may be nil.
func NewResolver(model llm.Model, geo Geolocator, defaultLocation string, logger *zap.Logger) *Resolver {
	if strings.TrimSpace(defaultLocation) == "" {
		defaultLocation = DefaultLocation
	}
	return &Resolver{
		model:           model,
		geo:             geo,
		defaultLocation: defaultLocation,
		logger:          logging.OrNop(logger).Named("intent"),
	}
}

var intentSchema = llm.Schema{
	Name:        "query_intent",
	Description: "Search term and location extracted from a business discovery query",
	JSON: json.RawMessage(`{
  "type": "object",
  "properties": {
    "has_location": {"type": "boolean"},
    "location": {"type": "string", "description": "Standardized location such as \"Chicago, IL\", empty when absent"},
    "search_term": {"type": "string", "description": "One to three keywords naming the business category"}
  },
  "required": ["has_location", "location", "search_term"],
  "additionalProperties": false
}`),
}

const intentSystem = `You turn business discovery queries into listing-site searches.
Decide whether the query names a specific location (city, state, zip code or region).
If it does, return it in a standard form ("City, ST" for US places) and remove it from the search term.
The search term must be 1-3 keywords naming the kind of business, with filler words removed.`

type intentAnswer struct {
	HasLocation bool   `json:"has_location"`
	Location    string `json:"location"`
	SearchTerm  string `json:"search_term"`
}

// Resolve classifies the query and fills in a location. origin is the
// caller's network address and may be empty.
func (r *Resolver) Resolve(ctx context.Context, query, origin string) Resolution {
	query = strings.TrimSpace(query)
	res := Resolution{SearchTerm: query}

	if answer, err := r.classify(ctx, query); err != nil {
		r.logger.Warn("intent inference failed, using verbatim query", zap.Error(err))
	} else {
		if term := strings.TrimSpace(answer.SearchTerm); term != "" {
			res.SearchTerm = term
		}
		if loc := strings.TrimSpace(answer.Location); answer.HasLocation && loc != "" {
			res.Location = loc
			res.HadExplicitLocation = true
		}
	}

	if res.Location == "" {
		res.Location = r.locate(ctx, origin)
	}
	r.logger.Debug("query resolved",
		zap.String("search_term", res.SearchTerm),
		zap.String("location", res.Location),
		zap.Bool("explicit_location", res.HadExplicitLocation))
	return res
}

func (r *Resolver) classify(ctx context.Context, query string) (intentAnswer, error) {
	if r.model == nil {
		return intentAnswer{}, fmt.Errorf("no inference model configured")
	}
	return llm.Decode[intentAnswer](ctx, r.model, llm.Request{
		System: intentSystem,
		Prompt: "Query: " + query,
		Schema: intentSchema,
	})
}

func (r *Resolver) locate(ctx context.Context, origin string) string {
	addr, ok := PublicAddr(origin)
	if !ok || r.geo == nil {
		return r.defaultLocation
	}
	loc, err := r.geo.Locate(ctx, addr)
	if err != nil || strings.TrimSpace(loc) == "" {
		r.logger.Debug("origin geolocation failed", zap.String("origin", addr.String()), zap.Error(err))
		return r.defaultLocation
	}
	return strings.TrimSpace(loc)
}

// PublicAddr parses origin (with or without a port) and reports whether it is
// a routable public address.
func PublicAddr(origin string) (netip.Addr, bool) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(origin)
	if err != nil {
		ap, perr := netip.ParseAddrPort(origin)
		if perr != nil {
			return netip.Addr{}, false
		}
		addr = ap.Addr()
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return netip.Addr{}, false
	}
	return addr, true
}
