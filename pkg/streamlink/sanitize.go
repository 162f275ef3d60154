package streamlink

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name safe to use as a single path element.
// Separators become "-", control characters are dropped, and surrounding
// whitespace is trimmed. An empty result, "." or ".." becomes "_".
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('-')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	switch out {
	case "", ".", "..":
		return "_"
	}
	return out
}
