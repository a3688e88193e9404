package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/leads-discovery/internal/result"
)

// CardSelectors describes a listing card layout.
type CardSelectors struct {
	Container string
	Name      string
	Website   string
	Phone     string
	Address   string
	Category  string
	Rating    string
	Reviews   string
}

// DefaultCardSelectors covers common directory layouts.
var DefaultCardSelectors = CardSelectors{
	Container: ".result, .v-card, .search-result, .business-card, .listing",
	Name:      ".business-name, h2 a, h3 a, .name",
	Website:   "a.track-visit-website, a.website-link, a.website, a[data-website]",
	Phone:     ".phones, .phone, a[href^='tel:']",
	Address:   ".adr, .address, .street-address",
	Category:  ".categories a, .category",
	Rating:    "[data-rating], .rating-value",
	Reviews:   ".count, .review-count",
}

type cardStrategy struct {
	sel CardSelectors
}

// NewCardStrategy builds a strategy for the given card layout.
func NewCardStrategy(sel CardSelectors) Strategy {
	return cardStrategy{sel: sel}
}

func (cardStrategy) Name() string { return "cards" }

func (s cardStrategy) Extract(doc *goquery.Document, base *url.URL) []result.Result[Listing] {
	var out []result.Result[Listing]
	doc.Find(s.sel.Container).Each(func(_ int, card *goquery.Selection) {
		// Containers nested inside other containers would double count.
		if card.ParentsFiltered(s.sel.Container).Length() > 0 {
			return
		}
		out = append(out, guard(func() result.Result[Listing] {
			l := Listing{
				Name:     firstText(card, s.sel.Name),
				Address:  firstText(card, s.sel.Address),
				Category: firstText(card, s.sel.Category),
			}
			if link := card.Find(s.sel.Website).First(); link.Length() > 0 {
				if v, ok := link.Attr("data-website"); ok {
					l.Website = v
				} else {
					l.Website, _ = link.Attr("href")
				}
			}
			if phone := card.Find(s.sel.Phone).First(); phone.Length() > 0 {
				if href, ok := phone.Attr("href"); ok && strings.HasPrefix(href, "tel:") {
					l.Phone = href
				} else {
					l.Phone = phone.Text()
				}
			}
			if rating := card.Find(s.sel.Rating).First(); rating.Length() > 0 {
				if v, ok := rating.Attr("data-rating"); ok {
					l.Rating = parseRating(v)
				} else {
					l.Rating = parseRating(rating.Text())
				}
			}
			l.Reviews = parseReviews(firstText(card, s.sel.Reviews))
			return finish(l, base)
		}))
	})
	return out
}

func firstText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return sel.Find(selector).First().Text()
}
