package entity

import (
	"strings"
	"unicode"
)

// NormalizeHashtag converts a keyword or raw tag into hashtag form.
// Punctuation and whitespace are stripped, letters are lowercased and a
// leading '#' is added. It returns "" when nothing usable remains.
//
// Example:
//
//	NormalizeHashtag("AI Technology!") // "#aitechnology"
//	NormalizeHashtag("#Go_Lang")       // "#golang"
func NormalizeHashtag(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)
	b.WriteByte('#')
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}

// NormalizeHashtags normalizes every tag, drops empties and duplicates
// (first occurrence wins) and keeps at most max tags. A max of zero or less
// means no cap. The result is never nil.
func NormalizeHashtags(raw []string, max int) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		if max > 0 && len(out) >= max {
			break
		}
		n := NormalizeHashtag(tag)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
