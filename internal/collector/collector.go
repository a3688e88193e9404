// Package collector pages through a listing source until enough companies with
// a usable website have been found.
package collector

import (
	"context"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/leads-discovery/internal/entity"
	"github.com/octobees/leads-discovery/internal/extractor"
	"github.com/octobees/leads-discovery/internal/logging"
	"github.com/octobees/leads-discovery/internal/normalize"
)

const (
	DefaultMaxPages      = 50
	DefaultMaxEmptyPages = 3
)

// StopReason explains why a collection run ended.
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopExhausted     StopReason = "exhausted"
	StopPageCeiling   StopReason = "page_ceiling"
	StopCancelled     StopReason = "cancelled"
)

// ListingSource fetches one listing page. ok=false means the fetch failed.
type ListingSource interface {
	Fetch(ctx context.Context, url string) (html string, ok bool)
}

// Config tunes pagination and pacing.
type Config struct {
	URLTemplate   string
	MaxPages      int
	MaxEmptyPages int
	PageDelay     time.Duration
	PageJitter    time.Duration
	PhoneRegion   string
}

// Request describes one collection run.
type Request struct {
	Term     string
	Location string
	Target   int
	// OnSkip receives listings or pages that were dropped, for progress reporting.
	OnSkip func(page int, reason string)
}

// Summary is returned once the run stops.
type Summary struct {
	Companies  []entity.Company
	Pages      int
	Observed   int
	Rejected   int
	StopReason StopReason
}

// Collector runs the paginated collection loop.
type Collector struct {
	cfg       Config
	extractor *extractor.Extractor
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	rand      *rand.Rand
	now       func() time.Time
}

// Option customises a Collector.
type Option func(*Collector)

// WithSleep replaces the inter-page sleeper.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithExtractor replaces the listing extractor.
func WithExtractor(e *extractor.Extractor) Option {
	return func(c *Collector) {
		if e != nil {
			c.extractor = e
		}
	}
}

// New builds a collector.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Collector {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxEmptyPages <= 0 {
		cfg.MaxEmptyPages = DefaultMaxEmptyPages
	}
	c := &Collector{
		cfg:       cfg,
		extractor: extractor.New(),
		logger:    logging.OrNop(logger).Named("collector"),
		sleep:     sleepContext,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches pages until a stop condition fires. Every qualifying company
// is handed to onFound as soon as it is seen; only companies onFound accepts
// count toward the target. A nil onFound accepts everything.
func (c *Collector) Collect(ctx context.Context, src ListingSource, req Request, onFound func(entity.Company) bool) (Summary, error) {
	var summary Summary
	seenListings := make(map[string]struct{})
	seenDomains := make(map[string]struct{})
	emptyStreak := 0

	skip := func(page int, reason string) {
		if req.OnSkip != nil {
			req.OnSkip(page, reason)
		}
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			summary.StopReason = StopCancelled
			return summary, err
		}
		if page > c.cfg.MaxPages {
			summary.StopReason = StopPageCeiling
			c.logger.Warn("page ceiling reached", zap.Int("max_pages", c.cfg.MaxPages))
			return summary, nil
		}
		if page > 1 {
			if err := c.sleep(ctx, c.delay()); err != nil {
				summary.StopReason = StopCancelled
				return summary, err
			}
		}

		pageURL := BuildPageURL(c.cfg.URLTemplate, req.Term, req.Location, page)
		summary.Pages = page

		fresh := 0
		html, ok := src.Fetch(ctx, pageURL)
		if !ok {
			skip(page, "page fetch failed")
		} else {
			ex, err := c.extractor.Extract(html, pageURL)
			if err != nil {
				skip(page, err.Error())
			}
			for _, reason := range ex.Skipped {
				skip(page, reason)
			}
			for _, l := range ex.Listings {
				key := listingKey(l)
				if _, dup := seenListings[key]; dup {
					continue
				}
				seenListings[key] = struct{}{}
				fresh++
				summary.Observed++

				if !normalize.Qualifies(l.Domain) {
					continue
				}
				if _, dup := seenDomains[l.Domain]; dup {
					continue
				}
				seenDomains[l.Domain] = struct{}{}

				company := c.toCompany(l)
				if onFound != nil && !onFound(company) {
					summary.Rejected++
					continue
				}
				summary.Companies = append(summary.Companies, company)
				if req.Target > 0 && len(summary.Companies) >= req.Target {
					summary.StopReason = StopTargetReached
					return summary, nil
				}
			}
		}

		c.logger.Debug("page processed",
			zap.Int("page", page),
			zap.Int("new_listings", fresh),
			zap.Int("qualifying", len(summary.Companies)),
		)

		if fresh == 0 {
			emptyStreak++
		} else {
			emptyStreak = 0
		}
		if emptyStreak >= c.cfg.MaxEmptyPages {
			summary.StopReason = StopExhausted
			return summary, nil
		}
	}
}

func (c *Collector) toCompany(l extractor.Listing) entity.Company {
	now := c.now().UTC()
	company := entity.Company{
		Name:             l.Name,
		NormalizedDomain: l.Domain,
		Address:          optional(l.Address),
		Website:          optional(l.Website),
		Category:         optional(l.Category),
		SourceURL:        optional(l.SourceURL),
		Rating:           l.Rating,
		Reviews:          l.Reviews,
		DiscoveredAt:     &now,
	}
	if phone := normalize.Phone(l.Phone, c.cfg.PhoneRegion); phone != "" {
		company.Phone = &phone
	}
	return company
}

func (c *Collector) delay() time.Duration {
	d := c.cfg.PageDelay
	if c.cfg.PageJitter > 0 {
		d += time.Duration(c.rand.Int63n(int64(c.cfg.PageJitter)))
	}
	return d
}

// BuildPageURL fills the {term}, {location} and {page} placeholders.
func BuildPageURL(template, term, location string, page int) string {
	r := strings.NewReplacer(
		"{term}", url.QueryEscape(term),
		"{location}", url.QueryEscape(location),
		"{page}", strconv.Itoa(page),
	)
	return r.Replace(template)
}

func listingKey(l extractor.Listing) string {
	return strings.ToLower(strings.TrimSpace(l.Name)) + "|" + strings.ToLower(strings.TrimSpace(l.Address))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
