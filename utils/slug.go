package utils

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Slugify lowercases s and collapses every run of non-alphanumeric characters
// into a single dash. Returns "post" for input with no usable characters so a
// content-only draft still produces a valid slug.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 96 {
		out = strings.Trim(out[:96], "-")
	}
	if out == "" {
		return "post"
	}
	return out
}

// NewPostSlug builds a unique post slug from the title. A short random suffix
// keeps slugs stable and collision-free without a read-before-write.
func NewPostSlug(title string) string {
	return Slugify(title) + "-" + uuid.NewString()[:8]
}
