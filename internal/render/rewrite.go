package render

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// Jira serves attachment content under this API path prefix, both as
	// root-relative references and embedded in absolute instance URLs.
	attachmentSourcePrefix = "/rest/api/"
	attachmentPathMarker   = "/attachment/"

	// Local proxy endpoint that fetches attachments server-side with the
	// integration's credentials.
	attachmentProxyPrefix = "/api/v1/jira/attachment/"
)

// AttachmentRewriter returns an HrefRewriter that redirects Jira attachment
// fetch paths through the local proxy for the given integration. It is
// applied attribute-level during the sanitize pass.
func AttachmentRewriter(integrationID uint) HrefRewriter {
	return func(value string) string {
		return RewriteAttachmentURL(integrationID, value)
	}
}

// RewriteAttachmentURL rewrites one attribute value when it matches the Jira
// attachment path pattern, preserving the path suffix. Rewritten values no
// longer match the pattern, so re-application is a no-op. Unparseable URLs
// and non-attachment references pass through untouched.
func RewriteAttachmentURL(integrationID uint, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return value
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return value
	}
	path := parsed.Path
	if !strings.HasPrefix(path, attachmentSourcePrefix) || !strings.Contains(path, attachmentPathMarker) {
		return value
	}
	return attachmentProxyPrefix + strconv.FormatUint(uint64(integrationID), 10) + path
}
