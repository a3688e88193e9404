package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NamePart folds a person's name fragment into the ASCII form used in email
// local parts: diacritics are removed, letters lowercased and anything that is
// not a letter or digit dropped ("José-María" -> "josemaria").
func NamePart(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleCase capitalises each whitespace separated word.
func TitleCase(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	parts := strings.Fields(value)
	for i, p := range parts {
		lower := []rune(strings.ToLower(p))
		if len(lower) == 0 {
			continue
		}
		lower[0] = unicode.ToUpper(lower[0])
		parts[i] = string(lower)
	}
	return strings.Join(parts, " ")
}
