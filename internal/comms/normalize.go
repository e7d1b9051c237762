package comms

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsboard/commhub/internal/payload"
	"github.com/opsboard/commhub/internal/render"
	"github.com/opsboard/commhub/internal/tracker"
)

// Shown when a raw comment carries no author field at all.
const unknownAuthorName = "Unknown"

var naiveTimestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// isoUTC serializes a timestamp as ISO-8601 in UTC.
func isoUTC(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

// normalizeTimestampText re-serializes a stored timestamp string as ISO-8601
// UTC. Timestamps lacking a timezone are treated as UTC; values that parse
// under no known layout pass through verbatim.
func normalizeTimestampText(raw string) string {
	if raw == "" {
		return ""
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return isoUTC(parsed)
	}
	for _, layout := range naiveTimestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return isoUTC(parsed)
		}
	}
	return raw
}

// attachmentRewriterFor returns the href rewrite hook for pre-rendered
// markup. Only the Jira provider has a known attachment URL convention;
// other providers' embedded links flow through unmodified.
func attachmentRewriterFor(provider tracker.Provider, integrationID uint) render.HrefRewriter {
	if provider != tracker.ProviderJira {
		return nil
	}
	return render.AttachmentRewriter(integrationID)
}

// normalizeComment converts one raw provider-shaped comment into its
// normalized view: extracted body, sanitized markup with proxied attachment
// links, resolved author, and an ISO-8601 UTC creation timestamp. The
// conversion is total; arbitrarily malformed payloads yield an empty-ish
// comment rather than an error.
func (s *Service) normalizeComment(ctx context.Context, raw json.RawMessage, provider tracker.Provider, integrationID uint) Comment {
	value := payload.Decode(raw)
	content := payload.ExtractContent(value, provider)
	rewrite := attachmentRewriterFor(provider, integrationID)

	authorName := value.Field("author").Text()
	if authorName == "" {
		authorName = unknownAuthorName
	}

	return Comment{
		ID:        value.Field("id").Text(),
		Author:    s.identity.ResolveAuthor(ctx, authorName, provider),
		Body:      content.Body,
		BodyHTML:  render.RichText(content.Body, content.PreRenderedHTML, rewrite),
		CreatedAt: normalizeTimestampText(value.Field("created_at").Text()),
		URL:       value.Field("url").Text(),
	}
}

// normalizeComments renders an issue's stored comment array in order.
func (s *Service) normalizeComments(ctx context.Context, issue tracker.ExternalIssue, provider tracker.Provider, integrationID uint) []Comment {
	rawComments := issue.RawComments()
	comments := make([]Comment, 0, len(rawComments))
	for _, raw := range rawComments {
		comments = append(comments, s.normalizeComment(ctx, raw, provider, integrationID))
	}
	return comments
}

// normalizeIssueBody extracts and renders the issue's own description.
func normalizeIssueBody(issue tracker.ExternalIssue, provider tracker.Provider, integrationID uint) (string, string) {
	content := payload.ExtractContent(payload.DecodeString(issue.RawPayloadJSON), provider)
	rewrite := attachmentRewriterFor(provider, integrationID)
	return content.Body, render.RichText(content.Body, content.PreRenderedHTML, rewrite)
}
