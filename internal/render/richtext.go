package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Matches opening or closing tag shapes; the presence of one routes content
// through the sanitizer instead of the plain-text path.
var htmlShapePattern = regexp.MustCompile(`</?\w+[^>]*>`)

var lineBreakReplacer = strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// RichText renders stored issue or comment content into embeddable markup.
// Pre-rendered HTML, when supplied, is trusted for fidelity and sanitized
// directly. Plain content is classified heuristically: HTML-like text is
// sanitized, everything else is escaped with line breaks preserved. The
// result is always safe to embed without further escaping.
func RichText(content, preRendered string, rewrite HrefRewriter) string {
	if trimmed := strings.TrimSpace(preRendered); trimmed != "" {
		return SanitizeLinks(trimmed, rewrite)
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	if htmlShapePattern.MatchString(trimmed) {
		if sanitized := SanitizeLinks(trimmed, rewrite); sanitized != "" {
			return sanitized
		}
	}

	return lineBreakReplacer.Replace(html.EscapeString(trimmed))
}
