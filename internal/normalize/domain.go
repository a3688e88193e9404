// Package normalize canonicalizes the raw values scraped from third-party pages
// into keys that can be compared across runs.
package normalize

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Hosts that never identify the business itself.
var nonBusinessHosts = []string{
	"facebook.com",
	"instagram.com",
	"linkedin.com",
	"twitter.com",
	"x.com",
	"youtube.com",
	"tiktok.com",
	"yelp.com",
	"yellowpages.com",
	"google.com",
	"goo.gl",
	"bit.ly",
	"wixsite.com",
	"business.site",
}

// Domain canonicalizes a raw URL or host into the comparison key used for
// deduplication. It never fails: unparsable input falls back to the trimmed,
// lowercased literal and empty input yields an empty key.
func Domain(raw string) string {
	literal := strings.ToLower(strings.TrimSpace(raw))
	if literal == "" {
		return ""
	}

	candidate := literal
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + strings.TrimLeft(candidate, "/")
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return literal
	}
	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return literal
	}
	for strings.HasPrefix(host, "www.") {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}

// SameSite reports whether two URLs or hosts belong to the same registrable
// domain, so that "biz.example.com" and "www.example.com" match.
func SameSite(a, b string) bool {
	da, db := Domain(a), Domain(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	ra, errA := publicsuffix.EffectiveTLDPlusOne(da)
	rb, errB := publicsuffix.EffectiveTLDPlusOne(db)
	return errA == nil && errB == nil && ra == rb
}

// Qualifies reports whether a normalized domain can be used to address email
// at the business: it must be a registrable public domain that is not an IP
// address, a social network or a listing aggregator.
func Qualifies(domain string) bool {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.ContainsAny(domain, " /@") {
		return false
	}
	if net.ParseIP(domain) != nil {
		return false
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return false
	}
	for _, host := range nonBusinessHosts {
		if domain == host || strings.HasSuffix(domain, "."+host) {
			return false
		}
	}
	return true
}
