package filegen

import "strings"

const maxSlugLength = 50

// Slug derives the stable file name from a display name: lowercase,
// non-alphanumeric runs collapse to single hyphens, at most 50 characters.
// Idempotent: Slug(Slug(x)) == Slug(x).
func Slug(displayName string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(displayName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimSuffix(slug[:maxSlugLength], "-")
	}
	return slug
}
