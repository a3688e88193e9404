package extractor

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/octobees/leads-discovery/internal/result"
)

type jsonLDStrategy struct{}

func (jsonLDStrategy) Name() string { return "json-ld" }

func (jsonLDStrategy) Extract(doc *goquery.Document, base *url.URL) []result.Result[Listing] {
	var out []result.Result[Listing]
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err != nil {
			out = append(out, result.Skip[Listing]("invalid json-ld block: %v", err))
			return
		}
		walkJSONLD(payload, func(node map[string]any) {
			out = append(out, guard(func() result.Result[Listing] {
				return finish(listingFromJSONLD(node), base)
			}))
		})
	})
	return out
}

var nonBusinessTypes = map[string]struct{}{
	"website": {}, "webpage": {}, "searchresultspage": {}, "breadcrumblist": {}, "itemlist": {},
	"listitem": {}, "person": {}, "searchaction": {}, "imageobject": {}, "offer": {}, "review": {},
}

// walkJSONLD visits every business-like node, descending into graphs and item lists.
func walkJSONLD(v any, visit func(map[string]any)) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			walkJSONLD(item, visit)
		}
	case map[string]any:
		if isBusinessNode(node) {
			visit(node)
			return
		}
		for _, key := range []string{"@graph", "itemListElement", "item", "mainEntity"} {
			if child, ok := node[key]; ok {
				walkJSONLD(child, visit)
			}
		}
	}
}

func isBusinessNode(node map[string]any) bool {
	types := jsonTypes(node["@type"])
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if _, skip := nonBusinessTypes[strings.ToLower(t)]; skip {
			return false
		}
	}
	return true
}

func jsonTypes(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func listingFromJSONLD(node map[string]any) Listing {
	l := Listing{
		Name:    jsonString(node["name"]),
		Website: jsonString(node["url"]),
		Phone:   jsonString(node["telephone"]),
		Address: jsonAddress(node["address"]),
	}
	if types := jsonTypes(node["@type"]); len(types) > 0 {
		l.Category = types[0]
	}
	if rating, ok := node["aggregateRating"].(map[string]any); ok {
		l.Rating = parseRating(jsonString(rating["ratingValue"]))
		count := jsonString(rating["reviewCount"])
		if count == "" {
			count = jsonString(rating["ratingCount"])
		}
		l.Reviews = parseReviews(count)
	}
	return l
}

func jsonAddress(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case []any:
		if len(a) > 0 {
			return jsonAddress(a[0])
		}
	case map[string]any:
		var parts []string
		for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if s := strings.TrimSpace(jsonString(a[key])); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func jsonString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) > 0 {
			return jsonString(t[0])
		}
	case map[string]any:
		if id, ok := t["@id"].(string); ok {
			return id
		}
	}
	return ""
}
