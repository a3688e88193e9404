package contact

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/octobees/leads-discovery/internal/normalize"
)

var rejectedProfilePrefixes = []string{"/company/", "/jobs/", "/pub/dir/", "/posts/", "/directory/", "/school/", "/search/", "/pulse/", "/groups/", "/feed/"}

// ProfileURL returns the canonical form of a professional-profile link, or
// an empty string when the link is not an individual profile page.
func ProfileURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host != "linkedin.com" && !strings.HasSuffix(host, ".linkedin.com") {
		return ""
	}
	path := strings.ToLower(u.EscapedPath())
	for _, prefix := range rejectedProfilePrefixes {
		if strings.HasPrefix(path+"/", prefix) {
			return ""
		}
	}
	if !strings.HasPrefix(path, "/in/") {
		return ""
	}
	slug := strings.Trim(strings.TrimPrefix(path, "/in/"), "/")
	if i := strings.Index(slug, "/"); i >= 0 {
		slug = slug[:i]
	}
	if slug == "" {
		return ""
	}
	return "https://www.linkedin.com/in/" + slug
}

// profileSlug returns the identifier segment of a canonical profile URL.
func profileSlug(profile string) string {
	return strings.TrimPrefix(profile, "https://www.linkedin.com/in/")
}

var (
	titleSeparators = []string{" - ", " | ", " – ", " — "}
	parenthetical   = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	honorifics      = map[string]struct{}{"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "miss": {}, "prof": {}, "sir": {}, "atty": {}}
	suffixes        = map[string]struct{}{"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}, "phd": {}, "md": {}, "mba": {}, "cpa": {}, "esq": {}, "jd": {}, "pe": {}}
)

// ParsedName is a person's name read from a search result title.
type ParsedName struct {
	First string
	Last  string
	Role  string
}

// ParseTitle reads "Name - Role at Company | LinkedIn" style titles. ok is
// false when no plausible person name is present.
func ParseTitle(title string) (ParsedName, bool) {
	segments := splitTitle(title)
	if len(segments) == 0 {
		return ParsedName{}, false
	}
	first, last, ok := parseName(segments[0])
	if !ok {
		return ParsedName{}, false
	}
	parsed := ParsedName{First: first, Last: last}
	if len(segments) > 1 && !strings.EqualFold(segments[1], "linkedin") {
		parsed.Role = segments[1]
	}
	return parsed, true
}

func splitTitle(title string) []string {
	rest := strings.TrimSpace(title)
	var out []string
	for rest != "" {
		cut := -1
		width := 0
		for _, sep := range titleSeparators {
			if i := strings.Index(rest, sep); i >= 0 && (cut < 0 || i < cut) {
				cut, width = i, len(sep)
			}
		}
		if cut < 0 {
			out = append(out, strings.TrimSpace(rest))
			break
		}
		if seg := strings.TrimSpace(rest[:cut]); seg != "" {
			out = append(out, seg)
		}
		rest = rest[cut+width:]
	}
	return out
}

func parseName(segment string) (string, string, bool) {
	segment = parenthetical.ReplaceAllString(segment, " ")
	if i := strings.Index(segment, ","); i >= 0 {
		segment = segment[:i]
	}
	if strings.Contains(strings.ToLower(segment), "linkedin") {
		return "", "", false
	}
	for _, r := range segment {
		if unicode.IsDigit(r) || r == '@' {
			return "", "", false
		}
	}

	var words []string
	for _, w := range strings.Fields(segment) {
		key := strings.ToLower(strings.Trim(w, "."))
		if _, skip := honorifics[key]; skip {
			continue
		}
		if _, skip := suffixes[key]; skip {
			continue
		}
		if normalize.NamePart(w) == "" {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 || len(words) > 4 {
		return "", "", false
	}
	first := cleanNameWord(words[0])
	last := ""
	if len(words) > 1 {
		last = cleanNameWord(words[len(words)-1])
	}
	return first, last, true
}

// cleanNameWord trims punctuation and fixes names typed in a single case.
func cleanNameWord(w string) string {
	w = strings.Trim(w, ".,;:'\"")
	if w == strings.ToLower(w) || w == strings.ToUpper(w) {
		return normalize.TitleCase(w)
	}
	return w
}

var legalSuffixes = regexp.MustCompile(`(?i)[,.]?\s+(llc|l\.l\.c\.|llp|inc|incorporated|co|corp|corporation|ltd|limited|pllc|pc|p\.c\.|group)\.?$`)

// companyMentioned reports whether text names the company.
func companyMentioned(company, text string) bool {
	name := strings.TrimSpace(legalSuffixes.ReplaceAllString(strings.TrimSpace(company), ""))
	if len(name) < 3 {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(name))
}
