package domain

import (
	"regexp"
	"strings"
)

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
)

// Slugify derives a URL-safe slug from a display name.
// Example: "ACME Blog!" -> "acme-blog"
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "")
	return slugSpaces.ReplaceAllString(s, "-")
}
