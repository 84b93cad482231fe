package listing

import (
	"regexp"
	"strings"
	"unicode"

	"listing-portal/internal/apperr"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Slugify turns a title into a URL slug: lower-case ASCII letters and
// digits separated by single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NormalizeSlug lower-cases and validates a slug.
func NormalizeSlug(slug string) (string, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if len(slug) > 191 || !slugPattern.MatchString(slug) {
		return "", apperr.ValidationFields("invalid slug", map[string]string{
			"slug": "must contain only lowercase letters, digits and single hyphens",
		})
	}
	return slug, nil
}
