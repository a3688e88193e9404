// Package extractor turns raw listing pages into listing records.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/leads-discovery/internal/normalize"
	"github.com/octobees/leads-discovery/internal/result"
)

// Listing is one business record as it appears on a listing page.
type Listing struct {
	Name      string
	Address   string
	Website   string
	Domain    string
	Phone     string
	Category  string
	Rating    *float64
	Reviews   *int
	SourceURL string
}

// Extraction is the outcome of parsing one page.
type Extraction struct {
	Listings []Listing
	Skipped  []string
	Strategy string
}

// Strategy pulls candidate listings from a document, one Result per element.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document, base *url.URL) []result.Result[Listing]
}

// Extractor tries its strategies in order and keeps the first that yields listings.
type Extractor struct {
	strategies []Strategy
}

// Option customises an Extractor.
type Option func(*Extractor)

// WithStrategies replaces the default strategy chain.
func WithStrategies(s ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = s
	}
}

// New builds an extractor using JSON-LD, then microdata, then card selectors.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		strategies: []Strategy{jsonLDStrategy{}, microdataStrategy{}, NewCardStrategy(DefaultCardSelectors)},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses raw HTML. A page without listings is a valid, empty extraction.
func (e *Extractor) Extract(raw, pageURL string) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse listing page: %w", err)
	}
	base, _ := url.Parse(pageURL)

	var out Extraction
	for _, s := range e.strategies {
		results := s.Extract(doc, base)
		var listings []Listing
		var skipped []string
		for _, r := range results {
			if r.IsOk() {
				l := r.Value()
				l.SourceURL = pageURL
				listings = append(listings, l)
				continue
			}
			skipped = append(skipped, r.Reason())
		}
		out.Skipped = append(out.Skipped, skipped...)
		if len(listings) > 0 {
			out.Listings = listings
			out.Strategy = s.Name()
			return out, nil
		}
	}
	return out, nil
}

// guard isolates a single element's parsing so a panic skips that element only.
func guard(fn func() result.Result[Listing]) (res result.Result[Listing]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.Skip[Listing]("listing parse panic: %v", r)
		}
	}()
	return fn()
}

// finish applies the shared rules every strategy's output goes through.
func finish(l Listing, base *url.URL) result.Result[Listing] {
	l.Name = cleanText(l.Name)
	if l.Name == "" {
		return result.Skip[Listing]("listing without a name")
	}
	l.Address = cleanText(l.Address)
	l.Phone = cleanText(l.Phone)
	l.Category = cleanText(l.Category)
	l.Website = websiteLink(base, strings.TrimSpace(l.Website))
	l.Domain = normalize.Domain(l.Website)
	return result.Ok(l)
}

var spaceRegex = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}

// redirectParams are the query keys listing sites use to wrap outbound links.
var redirectParams = []string{"url", "to", "u", "target", "dest", "destination", "redirect", "website"}

// websiteLink returns the business site behind href. A link that stays on the
// listing site only counts when it wraps an external URL in a redirect parameter.
func websiteLink(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	link, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		link = base.ResolveReference(link)
	}
	if !isWebURL(link) {
		return ""
	}
	if base == nil || !normalize.SameSite(link.Host, base.Host) {
		link.Fragment = ""
		return link.String()
	}

	query := link.Query()
	for _, key := range redirectParams {
		target, err := url.Parse(strings.TrimSpace(query.Get(key)))
		if err != nil || !isWebURL(target) || normalize.SameSite(target.Host, base.Host) {
			continue
		}
		target.Fragment = ""
		return target.String()
	}
	return ""
}

func isWebURL(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Hostname() != ""
}

var nonDigitRegex = regexp.MustCompile(`[^0-9]`)

func parseRating(value string) *float64 {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	if value == "" {
		return nil
	}
	r, err := strconv.ParseFloat(value, 64)
	if err != nil || r < 0 {
		return nil
	}
	return &r
}

func parseReviews(value string) *int {
	cleaned := nonDigitRegex.ReplaceAllString(value, "")
	if cleaned == "" {
		return nil
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &n
}
