// Package slug encodes service titles into URL path segments that embed
// the canonical service id, and recovers the id from such a segment.
package slug

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedSlug is returned when a slug has no recoverable trailing
// identifier segment.
var ErrMalformedSlug = errors.New("slug: no recoverable identifier segment")

// maxTitleLen caps the normalized title portion of a slug. The id is
// appended after the cap, so it is always recoverable regardless of
// title length.
const maxTitleLen = 64

// foldMarks strips combining marks after canonical decomposition, so
// "Café Logo Désign" normalizes the same as "Cafe Logo Design".
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Encode builds the canonical slug for a service: the normalized title
// followed by a dash and the verbatim id. A title that normalizes to
// nothing yields the bare id, which Decode still accepts.
func Encode(title, id string) string {
	normalized := normalizeTitle(title)
	if normalized == "" {
		return id
	}
	return normalized + "-" + id
}

// Decode extracts the trailing identifier segment from a slug. The
// segment after the last dash (the whole slug when it contains none)
// must be non-empty and drawn from the identifier alphabet; otherwise
// ErrMalformedSlug is returned.
func Decode(s string) (string, error) {
	if s == "" {
		return "", ErrMalformedSlug
	}

	id := s
	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		id = s[idx+1:]
	}

	if !validID(id) {
		return "", ErrMalformedSlug
	}
	return id, nil
}

// normalizeTitle lowers the title into the url-safe alphabet, collapsing
// every run of other characters into a single dash.
func normalizeTitle(title string) string {
	folded, _, err := transform.String(foldMarks, title)
	if err != nil {
		folded = title
	}

	out := make([]rune, 0, len(folded))
	lastDash := false
	for _, raw := range strings.ToLower(strings.TrimSpace(folded)) {
		if (raw >= 'a' && raw <= 'z') || (raw >= '0' && raw <= '9') {
			out = append(out, raw)
			lastDash = false
			continue
		}
		if !lastDash && len(out) > 0 {
			out = append(out, '-')
			lastDash = true
		}
	}

	text := strings.Trim(string(out), "-")
	if len(text) > maxTitleLen {
		text = strings.TrimRight(text[:maxTitleLen], "-")
	}
	return text
}

// validID reports whether id is non-empty and fits the identifier
// alphabet. Dashes are excluded so the id never collides with the
// title/id separator.
func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return false
	}
	return true
}
