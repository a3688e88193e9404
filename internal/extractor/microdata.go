package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/leads-discovery/internal/result"
)

type microdataStrategy struct{}

func (microdataStrategy) Name() string { return "microdata" }

func (microdataStrategy) Extract(doc *goquery.Document, base *url.URL) []result.Result[Listing] {
	var out []result.Result[Listing]
	doc.Find(`[itemscope][itemtype]`).Each(func(_ int, sel *goquery.Selection) {
		itemType, _ := sel.Attr("itemtype")
		if !isBusinessItemType(itemType) {
			return
		}
		// Nested business scopes are handled by their outermost ancestor.
		if sel.ParentsFiltered(`[itemscope][itemtype]`).FilterFunction(func(_ int, p *goquery.Selection) bool {
			t, _ := p.Attr("itemtype")
			return isBusinessItemType(t)
		}).Length() > 0 {
			return
		}
		out = append(out, guard(func() result.Result[Listing] {
			l := Listing{
				Name:     itemProp(sel, "name"),
				Website:  itemProp(sel, "url"),
				Phone:    itemProp(sel, "telephone"),
				Address:  itemProp(sel, "address"),
				Category: itemTypeName(itemType),
			}
			l.Rating = parseRating(itemProp(sel, "ratingValue"))
			l.Reviews = parseReviews(itemProp(sel, "reviewCount"))
			return finish(l, base)
		}))
	})
	return out
}

func isBusinessItemType(t string) bool {
	t = strings.ToLower(t)
	if !strings.Contains(t, "schema.org") {
		return false
	}
	for _, skip := range []string{"postaladdress", "aggregaterating", "person", "review", "offer", "geocoordinates", "webpage", "website", "itemlist", "breadcrumblist", "searchresultspage"} {
		if strings.HasSuffix(t, "/"+skip) {
			return false
		}
	}
	return true
}

func itemTypeName(t string) string {
	t = strings.TrimRight(strings.TrimSpace(t), "/")
	if i := strings.LastIndex(t, "/"); i >= 0 {
		return t[i+1:]
	}
	return t
}

func itemProp(sel *goquery.Selection, prop string) string {
	node := sel.Find(`[itemprop="` + prop + `"]`).First()
	if node.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"content", "href", "src"} {
		if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return node.Text()
}
