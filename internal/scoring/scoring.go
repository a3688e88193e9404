// Package scoring assigns confidence to inferred contacts and their candidate
// emails, and a lead score to companies.
package scoring

import (
	"math"
	"strings"
	"unicode"
)

const (
	categoryNameClarity  = "name_clarity"
	categoryCompanyMatch = "company_match"
	categoryProfile      = "profile_link"
	categoryBusiness     = "business_profile"
	categoryWebsite      = "website_quality"
	categoryReachability = "reachability"
	categoryReputation   = "reputation"
)

// DefaultFloor is the minimum confidence a contact or email must reach to be surfaced.
const DefaultFloor = 0.3

// alternateDecay scales the confidence of the n-th generated address.
var alternateDecay = []float64{1, 0.6, 0.45, 0.35, 0.3, 0.25}

var freeHostingDomains = []string{
	"wordpress.com",
	"blogspot.com",
	"wixsite.com",
	"weebly.com",
	"squarespace.com",
	"godaddysites.com",
	"notion.site",
	"business.site",
}

// ContactFeatures captures what was extracted for one contact.
type ContactFeatures struct {
	HasFirstName     bool
	HasLastName      bool
	CompanyMentioned bool
	HasProfile       bool
}

// Result reports a confidence in [0,1] and its breakdown.
type Result struct {
	Total     float64
	Breakdown map[string]float64
}

// ScoreContact combines extraction clarity with the confidence of the email
// pattern that will be applied to the contact.
func ScoreContact(f ContactFeatures, patternConfidence float64) Result {
	breakdown := map[string]float64{
		categoryNameClarity:  scoreNameClarity(f),
		categoryCompanyMatch: 0,
		categoryProfile:      0,
	}
	if f.CompanyMentioned {
		breakdown[categoryCompanyMatch] = 0.3
	}
	if f.HasProfile {
		breakdown[categoryProfile] = 0.1
	}

	clarity := 0.0
	for _, v := range breakdown {
		clarity += v
	}
	clarity = math.Min(clarity, 1)

	total := clarity * (0.4 + 0.6*clamp01(patternConfidence))
	return Result{Total: round(total), Breakdown: breakdown}
}

func scoreNameClarity(f ContactFeatures) float64 {
	switch {
	case f.HasFirstName && f.HasLastName:
		return 0.6
	case f.HasFirstName:
		return 0.2
	}
	return 0
}

// EmailConfidence returns the confidence of the rank-th address generated for
// a contact whose own confidence is base. Rank 0 is the pattern address.
func EmailConfidence(base float64, rank int) float64 {
	if rank < 0 {
		rank = 0
	}
	if rank >= len(alternateDecay) {
		rank = len(alternateDecay) - 1
	}
	return round(clamp01(base) * alternateDecay[rank])
}

// Passes reports whether confidence reaches floor.
func Passes(confidence, floor float64) bool {
	return confidence+1e-9 >= floor
}

// CompanyFeatures captures the signals used to rank discovered companies.
type CompanyFeatures struct {
	Website  string
	Address  string
	Phone    string
	Rating   float64
	Reviews  int
	Contacts int
}

// CompanyScore reports an integer lead score out of 100 and its breakdown.
type CompanyScore struct {
	Total     int
	Breakdown map[string]int
}

// ScoreCompany evaluates a company record.
func ScoreCompany(input CompanyFeatures) CompanyScore {
	breakdown := map[string]int{
		categoryBusiness:     scoreBusinessProfile(input),
		categoryWebsite:      scoreWebsiteQuality(input),
		categoryReachability: scoreReachability(input),
		categoryReputation:   scoreReputation(input),
	}
	total := 0
	for _, v := range breakdown {
		total += v
	}
	return CompanyScore{Total: total, Breakdown: breakdown}
}

func scoreBusinessProfile(input CompanyFeatures) int {
	score := 0
	if hasCompleteAddress(input.Address) {
		score += 15
	}
	if strings.TrimSpace(input.Phone) != "" {
		score += 10
	}
	return score
}

func scoreWebsiteQuality(input CompanyFeatures) int {
	score := 0
	site := strings.ToLower(strings.TrimSpace(input.Website))
	if strings.HasPrefix(site, "https://") {
		score += 10
	}
	if highQualityDomain(site) {
		score += 20
	}
	return score
}

func scoreReachability(input CompanyFeatures) int {
	return min(input.Contacts*5, 25)
}

func scoreReputation(input CompanyFeatures) int {
	score := 0
	if input.Rating >= 4 {
		score += 10
	} else if input.Rating >= 3 {
		score += 5
	}
	switch {
	case input.Reviews >= 50:
		score += 10
	case input.Reviews >= 10:
		score += 5
	}
	return score
}

func hasCompleteAddress(raw string) bool {
	addr := strings.TrimSpace(raw)
	if len(addr) < 10 {
		return false
	}
	var hasLetter, hasDigit bool
	separatorCount := 0
	for _, r := range addr {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case r == ',':
			separatorCount++
		}
	}
	return hasLetter && hasDigit && separatorCount >= 1
}

func highQualityDomain(site string) bool {
	domain := hostOf(site)
	if domain == "" {
		return false
	}
	for _, bad := range freeHostingDomains {
		if domain == bad || strings.HasSuffix(domain, "."+bad) {
			return false
		}
	}
	return strings.Contains(domain, ".")
}

func hostOf(site string) string {
	site = strings.TrimPrefix(strings.TrimPrefix(site, "https://"), "http://")
	if i := strings.IndexAny(site, "/?#"); i >= 0 {
		site = site[:i]
	}
	return strings.TrimPrefix(site, "www.")
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
