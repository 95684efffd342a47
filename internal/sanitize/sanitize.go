// Package sanitize strips user-submitted rich text down to a fixed allow-list
// of inline formatting. The sanitizer is injected into the services that
// persist user content so tests can substitute a pass-through.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer reduces raw HTML to safe HTML. Implementations must be idempotent
// (sanitizing already-sanitized content is a no-op) and must never fail on
// malformed input; best-effort stripping is always possible.
type Sanitizer interface {
	Sanitize(raw string) string
}

// HTMLSanitizer applies an inline-formatting allow-list via bluemonday.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

// NewHTMLSanitizer builds the sanitizer used for post bodies and comments.
// Allowed: basic inline formatting, links (forced rel="nofollow"), code,
// blockquotes, lists, and paragraph breaks. Everything else is stripped.
func NewHTMLSanitizer() *HTMLSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "code", "pre",
		"blockquote", "p", "br", "ul", "ol", "li")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return &HTMLSanitizer{policy: p}
}

func (s *HTMLSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
