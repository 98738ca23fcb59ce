package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans user-generated HTML fragments, keeping a safe subset.
// Used for post content, which may embed HTML inside markdown.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeStrict strips all HTML. Used for titles, descriptions and bios.
func SanitizeStrict(input string) string {
	return strictPolicy.Sanitize(input)
}
