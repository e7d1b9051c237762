package comms

import (
	"context"
	"errors"
	"fmt"

	"github.com/opsboard/commhub/internal/tracker"
	"github.com/opsboard/commhub/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingIdentity = errors.New("identity service is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries an operation-scoped failure code alongside its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the machine-readable failure code.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew         = "comms.service.new"
	opListCommunications = "comms.list_communications"
	opListThreads        = "comms.list_threads"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// Sort orders accepted by the flat feed.
const (
	SortRecent = "recent"
	SortOldest = "oldest"
)

// FeedQuery filters and paginates the flat communications feed.
type FeedQuery struct {
	TenantID  *uint
	ProjectID *uint
	Limit     int
	Offset    int
	Sort      string
}

// ThreadQuery filters and paginates the threaded feed. IssueID narrows the
// result to one issue for deep-linking.
type ThreadQuery struct {
	TenantID  *uint
	ProjectID *uint
	IssueID   *uint
	Limit     int
	Offset    int
}

// ServiceConfig describes the dependencies of the aggregation service.
type ServiceConfig struct {
	Database *gorm.DB
	Identity *users.Service
	Logger   *zap.Logger
}

// Service builds communication feeds over persisted raw issues. Every read
// recomputes normalization from the stored payloads; nothing is cached.
type Service struct {
	db       *gorm.DB
	identity *users.Service
	logger   *zap.Logger
}

// NewService constructs the aggregation service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Identity == nil {
		return nil, newServiceError(opServiceNew, "missing_identity_service", errMissingIdentity)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, identity: cfg.Identity, logger: logger}, nil
}

// filteredIssues builds the base query for issues that belong to the feed:
// tenant/project scoped when requested, always excluding issues without
// comments.
func (s *Service) filteredIssues(ctx context.Context, tenantID, projectID *uint) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&tracker.ExternalIssue{})
	if tenantID != nil || projectID != nil {
		query = query.Joins("JOIN project_integrations ON project_integrations.id = external_issues.project_integration_id")
	}
	if tenantID != nil {
		query = query.
			Joins("JOIN projects ON projects.id = project_integrations.project_id").
			Where("projects.tenant_id = ?", *tenantID)
	}
	if projectID != nil {
		query = query.Where("project_integrations.project_id = ?", *projectID)
	}
	// SQLite's json functions reject empty text, so never-synced issues are
	// filtered out before the array-length check.
	return query.Where("external_issues.comments IS NOT NULL AND external_issues.comments <> '' AND json_array_length(external_issues.comments) > 0")
}

func withAssociations(query *gorm.DB) *gorm.DB {
	return query.
		Preload("ProjectIntegration.Integration").
		Preload("ProjectIntegration.Project.Tenant")
}

// ListCommunications returns the flat feed: one entry per comment across all
// matching issues, newest tracker activity first unless oldest is requested.
func (s *Service) ListCommunications(ctx context.Context, query FeedQuery) (FeedPage, error) {
	limit, offset := clampWindow(query.Limit, query.Offset, FlatFeedDefaultLimit, FlatFeedMaxLimit)

	var total int64
	if err := s.filteredIssues(ctx, query.TenantID, query.ProjectID).Count(&total).Error; err != nil {
		s.logError(opListCommunications, "count_failed", err)
		return FeedPage{}, newServiceError(opListCommunications, "count_failed", err)
	}

	ordered := s.filteredIssues(ctx, query.TenantID, query.ProjectID)
	if query.Sort == SortOldest {
		ordered = ordered.Order("external_issues.created_at ASC")
	} else {
		ordered = ordered.Order("COALESCE(external_issues.external_updated_at, external_issues.created_at) DESC")
	}

	var issues []tracker.ExternalIssue
	if err := withAssociations(ordered).Limit(limit).Offset(offset).Find(&issues).Error; err != nil {
		s.logError(opListCommunications, "query_failed", err)
		return FeedPage{}, newServiceError(opListCommunications, "query_failed", err)
	}

	entries := make([]FeedEntry, 0, len(issues))
	for _, issue := range issues {
		scope := issueScope(issue)
		statusKey, statusLabel := tracker.NormalizeStatus(issue.Status)
		for _, comment := range s.normalizeComments(ctx, issue, scope.provider, scope.integrationID) {
			entries = append(entries, FeedEntry{
				IssueID:          issue.ID,
				IssueExternalID:  issue.ExternalID,
				IssueTitle:       issue.Title,
				IssueStatus:      issue.Status,
				IssueStatusKey:   statusKey,
				IssueStatusLabel: statusLabel,
				IssueURL:         issue.URL,
				IssueAssignee:    issue.Assignee,
				Comment:          comment,
				Provider:         scope.provider.String(),
				ProviderName:     scope.providerName,
				IntegrationID:    scope.integrationID,
				IntegrationName:  scope.integrationName,
				ProjectID:        scope.projectID,
				ProjectName:      scope.projectName,
				TenantID:         scope.tenantID,
				TenantName:       scope.tenantName,
			})
		}
	}

	return FeedPage{
		Communications: entries,
		Pagination: Pagination{
			Total:  total,
			Count:  len(entries),
			Limit:  limit,
			Offset: offset,
		},
	}, nil
}

// ListThreads returns the threaded feed: one entry per matching issue with
// its rendered body and ordered comments, most recently updated first.
func (s *Service) ListThreads(ctx context.Context, query ThreadQuery) (ThreadPage, error) {
	limit, offset := clampWindow(query.Limit, query.Offset, ThreadFeedDefaultLimit, ThreadFeedMaxLimit)

	filtered := func() *gorm.DB {
		base := s.filteredIssues(ctx, query.TenantID, query.ProjectID)
		if query.IssueID != nil {
			base = base.Where("external_issues.id = ?", *query.IssueID)
		}
		return base
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		s.logError(opListThreads, "count_failed", err)
		return ThreadPage{}, newServiceError(opListThreads, "count_failed", err)
	}

	ordered := filtered().Order("COALESCE(external_issues.external_updated_at, external_issues.created_at) DESC")

	var issues []tracker.ExternalIssue
	if err := withAssociations(ordered).Limit(limit).Offset(offset).Find(&issues).Error; err != nil {
		s.logError(opListThreads, "query_failed", err)
		return ThreadPage{}, newServiceError(opListThreads, "query_failed", err)
	}

	threads := make([]ThreadEntry, 0, len(issues))
	for _, issue := range issues {
		scope := issueScope(issue)
		statusKey, statusLabel := tracker.NormalizeStatus(issue.Status)
		body, bodyHTML := normalizeIssueBody(issue, scope.provider, scope.integrationID)
		comments := s.normalizeComments(ctx, issue, scope.provider, scope.integrationID)

		updatedAt := issue.UpdatedAt
		if issue.ExternalUpdatedAt != nil {
			updatedAt = *issue.ExternalUpdatedAt
		} else if updatedAt.IsZero() {
			updatedAt = issue.CreatedAt
		}

		threads = append(threads, ThreadEntry{
			IssueID:          issue.ID,
			IssueExternalID:  issue.ExternalID,
			IssueTitle:       issue.Title,
			IssueStatus:      issue.Status,
			IssueStatusKey:   statusKey,
			IssueStatusLabel: statusLabel,
			IssueURL:         issue.URL,
			IssueAssignee:    issue.Assignee,
			IssueLabels:      issue.Labels(),
			IssueBody:        body,
			IssueBodyHTML:    bodyHTML,
			Provider:         scope.provider.String(),
			ProviderName:     scope.providerName,
			IntegrationID:    scope.integrationID,
			IntegrationName:  scope.integrationName,
			ProjectID:        scope.projectID,
			ProjectName:      scope.projectName,
			TenantID:         scope.tenantID,
			TenantName:       scope.tenantName,
			CommentCount:     len(comments),
			Comments:         comments,
			CreatedAt:        isoUTC(issue.CreatedAt),
			UpdatedAt:        isoUTC(updatedAt),
		})
	}

	return ThreadPage{
		Threads: threads,
		Pagination: Pagination{
			Total:  total,
			Count:  len(threads),
			Limit:  limit,
			Offset: offset,
		},
	}, nil
}

// scope flattens the issue's preloaded associations, tolerating records
// whose integration, project, or tenant rows are missing.
type scope struct {
	provider        tracker.Provider
	providerName    string
	integrationID   uint
	integrationName string
	projectID       uint
	projectName     string
	tenantID        uint
	tenantName      string
}

func issueScope(issue tracker.ExternalIssue) scope {
	resolved := scope{}
	projectIntegration := issue.ProjectIntegration
	if projectIntegration == nil {
		return resolved
	}
	if integration := projectIntegration.Integration; integration != nil {
		resolved.provider = integration.ProviderTag()
		resolved.providerName = integration.Provider
		resolved.integrationID = integration.ID
		resolved.integrationName = integration.Name
	}
	if project := projectIntegration.Project; project != nil {
		resolved.projectID = project.ID
		resolved.projectName = project.Name
		if tenant := project.Tenant; tenant != nil {
			resolved.tenantID = tenant.ID
			resolved.tenantName = tenant.Name
		}
	}
	return resolved
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("comms service error", attrs...)
}
