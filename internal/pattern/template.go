package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/octobees/leads-discovery/internal/normalize"
)

var (
	// ErrInvalidTemplate is returned for templates outside the placeholder grammar.
	ErrInvalidTemplate = errors.New("invalid email template")
	// ErrMissingName is returned when a template needs a name part the contact lacks.
	ErrMissingName = errors.New("name part required by template is missing")
)

type token int

const (
	tokFirstName token = iota
	tokLastName
	tokFirstInitial
	tokLastInitial
	tokSeparator
)

type part struct {
	tok token
	sep byte
}

// Placeholders in match order. Longer spellings come first so "firstname"
// is not read as "f" followed by literal text.
var placeholders = []struct {
	text string
	tok  token
}{
	{"firstname", tokFirstName},
	{"lastname", tokLastName},
	{"first", tokFirstName},
	{"last", tokLastName},
	{"f", tokFirstInitial},
	{"l", tokLastInitial},
}

var canonical = map[token]string{
	tokFirstName:    "firstname",
	tokLastName:     "lastname",
	tokFirstInitial: "f",
	tokLastInitial:  "l",
}

// Template is a parsed email pattern bound to a domain.
type Template struct {
	parts  []part
	domain string
}

// Parse reads "<local>@<domain>". The local part may wrap placeholders in
// braces, e.g. "{first}.{last}".
func Parse(s string) (Template, error) {
	s = strings.TrimSpace(s)
	at := strings.LastIndex(s, "@")
	if at < 0 {
		return Template{}, fmt.Errorf("%w: %q has no domain", ErrInvalidTemplate, s)
	}
	return Bind(s[:at], s[at+1:])
}

// Bind parses a local-part template and attaches it to domain.
func Bind(local, domain string) (Template, error) {
	domain = normalize.Domain(domain)
	if domain == "" {
		return Template{}, fmt.Errorf("%w: empty domain", ErrInvalidTemplate)
	}
	parts, err := parseLocal(local)
	if err != nil {
		return Template{}, err
	}
	return Template{parts: parts, domain: domain}, nil
}

// Fallback is the most common business convention, firstname.lastname.
func Fallback(domain string) Template {
	return Template{
		parts:  []part{{tok: tokFirstName}, {tok: tokSeparator, sep: '.'}, {tok: tokLastName}},
		domain: normalize.Domain(domain),
	}
}

func parseLocal(local string) ([]part, error) {
	cleaned := strings.ToLower(strings.TrimSpace(local))
	cleaned = strings.NewReplacer("{", "", "}", "", "[", "", "]", "", "<", "", ">", "", " ", "").Replace(cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty local part", ErrInvalidTemplate)
	}

	var parts []part
	hasName := false
	for i := 0; i < len(cleaned); {
		c := cleaned[i]
		if c == '.' || c == '_' || c == '-' {
			if len(parts) == 0 || parts[len(parts)-1].tok == tokSeparator {
				return nil, fmt.Errorf("%w: misplaced separator in %q", ErrInvalidTemplate, local)
			}
			parts = append(parts, part{tok: tokSeparator, sep: c})
			i++
			continue
		}
		matched := false
		for _, p := range placeholders {
			if strings.HasPrefix(cleaned[i:], p.text) {
				parts = append(parts, part{tok: p.tok})
				i += len(p.text)
				matched = true
				hasName = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidTemplate, cleaned[i:], local)
		}
	}
	if !hasName || parts[len(parts)-1].tok == tokSeparator {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, local)
	}
	return parts, nil
}

// Domain returns the bound domain.
func (t Template) Domain() string { return t.domain }

// Local returns the canonical local-part template, e.g. "firstname.lastname".
func (t Template) Local() string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.tok == tokSeparator {
			b.WriteByte(p.sep)
			continue
		}
		b.WriteString(canonical[p.tok])
	}
	return b.String()
}

// String returns the canonical template with its domain.
func (t Template) String() string {
	return t.Local() + "@" + t.domain
}

// RequiresLastName reports whether any placeholder uses the last name.
func (t Template) RequiresLastName() bool {
	for _, p := range t.parts {
		if p.tok == tokLastName || p.tok == tokLastInitial {
			return true
		}
	}
	return false
}

// Apply renders an address for the given name parts.
func (t Template) Apply(first, last string) (string, error) {
	f := normalize.NamePart(first)
	l := normalize.NamePart(last)
	if f == "" {
		return "", fmt.Errorf("%w: first name", ErrMissingName)
	}
	if l == "" && t.RequiresLastName() {
		return "", fmt.Errorf("%w: last name", ErrMissingName)
	}

	var b strings.Builder
	for _, p := range t.parts {
		switch p.tok {
		case tokFirstName:
			b.WriteString(f)
		case tokLastName:
			b.WriteString(l)
		case tokFirstInitial:
			b.WriteString(f[:1])
		case tokLastInitial:
			b.WriteString(l[:1])
		case tokSeparator:
			b.WriteByte(p.sep)
		}
	}
	return b.String() + "@" + t.domain, nil
}
