// Package comms aggregates normalized issue comments from all configured
// tracker integrations into flat and threaded communication feeds.
package comms

import (
	"github.com/opsboard/commhub/internal/users"
)

// Pagination bounds per feed view.
const (
	FlatFeedDefaultLimit   = 100
	FlatFeedMaxLimit       = 500
	ThreadFeedDefaultLimit = 50
	ThreadFeedMaxLimit     = 200
)

// Comment is one normalized comment, recomputed on every read and never
// persisted. BodyHTML always conforms to the sanitizer allowlist.
type Comment struct {
	ID        string             `json:"id"`
	Author    users.RemoteAuthor `json:"author"`
	Body      string             `json:"body"`
	BodyHTML  string             `json:"body_html"`
	CreatedAt string             `json:"created_at"`
	URL       string             `json:"url"`
}

// FeedEntry is one flat-feed row: a single comment with its full issue,
// integration, project, and tenant context.
type FeedEntry struct {
	IssueID          uint    `json:"issue_id"`
	IssueExternalID  string  `json:"issue_external_id"`
	IssueTitle       string  `json:"issue_title"`
	IssueStatus      string  `json:"issue_status"`
	IssueStatusKey   string  `json:"issue_status_key"`
	IssueStatusLabel string  `json:"issue_status_label"`
	IssueURL         string  `json:"issue_url"`
	IssueAssignee    string  `json:"issue_assignee"`
	Comment          Comment `json:"comment"`
	Provider         string  `json:"provider"`
	ProviderName     string  `json:"provider_name"`
	IntegrationID    uint    `json:"integration_id"`
	IntegrationName  string  `json:"integration_name"`
	ProjectID        uint    `json:"project_id"`
	ProjectName      string  `json:"project_name"`
	TenantID         uint    `json:"tenant_id"`
	TenantName       string  `json:"tenant_name"`
}

// ThreadEntry is one threaded-feed row: an issue with its normalized body
// and the ordered comments underneath it.
type ThreadEntry struct {
	IssueID          uint      `json:"issue_id"`
	IssueExternalID  string    `json:"issue_external_id"`
	IssueTitle       string    `json:"issue_title"`
	IssueStatus      string    `json:"issue_status"`
	IssueStatusKey   string    `json:"issue_status_key"`
	IssueStatusLabel string    `json:"issue_status_label"`
	IssueURL         string    `json:"issue_url"`
	IssueAssignee    string    `json:"issue_assignee"`
	IssueLabels      []string  `json:"issue_labels"`
	IssueBody        string    `json:"issue_body"`
	IssueBodyHTML    string    `json:"issue_body_html"`
	Provider         string    `json:"provider"`
	ProviderName     string    `json:"provider_name"`
	IntegrationID    uint      `json:"integration_id"`
	IntegrationName  string    `json:"integration_name"`
	ProjectID        uint      `json:"project_id"`
	ProjectName      string    `json:"project_name"`
	TenantID         uint      `json:"tenant_id"`
	TenantName       string    `json:"tenant_name"`
	CommentCount     int       `json:"comment_count"`
	Comments         []Comment `json:"comments"`
	CreatedAt        string    `json:"created_at"`
	UpdatedAt        string    `json:"updated_at"`
}

// Pagination reports the window applied to a feed. Total reflects the
// filter before pagination; Count reflects the returned page size.
type Pagination struct {
	Total  int64 `json:"total"`
	Count  int   `json:"count"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// FeedPage is the flat-feed response body.
type FeedPage struct {
	Communications []FeedEntry `json:"communications"`
	Pagination     Pagination  `json:"pagination"`
}

// ThreadPage is the threaded-feed response body.
type ThreadPage struct {
	Threads    []ThreadEntry `json:"threads"`
	Pagination Pagination    `json:"pagination"`
}

// clampWindow normalizes a requested page window: non-positive limits reset
// to the view default, oversized limits clamp to the cap, negative offsets
// clamp to zero. Out-of-range values never error.
func clampWindow(limit, offset, defaultLimit, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
