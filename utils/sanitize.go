package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

const maxSanitizePasses = 4

// Sanitize cleans HTML content to prevent XSS attacks. Text is stored unescaped
// ("a < b", "Tom & Jerry") so it can be searched and measured as typed.
func Sanitize(input string) string {
	return strings.TrimSpace(settle(sanitizer, input))
}

// StripTags removes every tag and returns plain text; used for single line fields such as titles.
func StripTags(input string) string {
	return strings.TrimSpace(settle(stripper, input))
}

// settle unescapes the policy output and sanitizes again until the text no
// longer changes, so entity-encoded markup cannot come back as live tags.
// Input that does not settle keeps the escaped form.
func settle(p *bluemonday.Policy, input string) string {
	cur := input
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(p.Sanitize(cur))
		if next == cur {
			return cur
		}
		cur = next
	}
	return p.Sanitize(cur)
}
