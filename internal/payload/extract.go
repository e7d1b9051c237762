package payload

import (
	"strings"

	"github.com/opsboard/commhub/internal/tracker"
)

// Candidate body fields in precedence order, covering the shapes observed
// across providers: GitHub issues and comments carry `body`, GitLab issues
// carry `description`, Jira issues nest the description under `fields`, and
// `body_text`/`summary` absorb trimmed-down payloads.
var bodyFieldPaths = [][]string{
	{"body"},
	{"description"},
	{"fields", "description"},
	{"body_text"},
	{"summary"},
}

// Pre-rendered HTML fields. Jira is the only provider that ships rendered
// markup: issues under renderedFields, comments as body_html.
var renderedFieldPaths = [][]string{
	{"renderedFields", "description"},
	{"body_html"},
}

// Content is the extracted text of one raw issue or comment payload. Both
// fields may be empty, never meaningfully absent.
type Content struct {
	Body            string
	PreRenderedHTML string
}

// ExtractContent pulls body text and any pre-rendered HTML out of a
// provider-shaped payload. Missing or malformed structure degrades to empty
// strings; the function never fails.
func ExtractContent(value Value, provider tracker.Provider) Content {
	content := Content{}
	if provider == tracker.ProviderJira {
		for _, path := range renderedFieldPaths {
			if match := firstText(value, path); match != "" {
				content.PreRenderedHTML = match
				break
			}
		}
	}
	for _, path := range bodyFieldPaths {
		if match := firstText(value, path); match != "" {
			content.Body = match
			break
		}
	}
	return content
}

func firstText(value Value, path []string) string {
	match := value.Lookup(path...)
	if match.IsNull() {
		return ""
	}
	return strings.TrimSpace(match.Text())
}
