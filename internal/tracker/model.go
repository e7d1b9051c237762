package tracker

import (
	"encoding/json"
	"strings"
	"time"
)

// Provider enumerates the issue trackers an integration can point at.
type Provider string

const (
	// ProviderGitHub identifies GitHub issue integrations.
	ProviderGitHub Provider = "github"
	// ProviderGitLab identifies GitLab issue integrations.
	ProviderGitLab Provider = "gitlab"
	// ProviderJira identifies Jira-style ticket tracker integrations.
	ProviderJira Provider = "jira"
)

// ParseProvider normalizes a stored provider string. Unknown values are
// lowercased and carried through so records from future providers still
// render, without tracker-specific privileges.
func ParseProvider(value string) Provider {
	return Provider(strings.ToLower(strings.TrimSpace(value)))
}

// String returns the canonical lower-case provider name.
func (p Provider) String() string {
	return string(p)
}

// Tenant groups projects under one organization.
type Tenant struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;size:255;not null;uniqueIndex"`
	Description string    `gorm:"column:description;type:text"`
	Color       string    `gorm:"column:color;size:16"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Tenant) TableName() string {
	return "tenants"
}

// Project is a repository-backed workspace owned by a tenant.
type Project struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:255;not null"`
	RepoURL   string    `gorm:"column:repo_url;size:512"`
	TenantID  uint      `gorm:"column:tenant_id;not null;index"`
	Tenant    *Tenant   `gorm:"foreignKey:TenantID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "projects"
}

// TenantIntegration stores one tracker connection owned by a tenant.
type TenantIntegration struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	TenantID  uint      `gorm:"column:tenant_id;not null;index"`
	Provider  string    `gorm:"column:provider;size:50;not null"`
	Name      string    `gorm:"column:name;size:255;not null"`
	BaseURL   string    `gorm:"column:base_url;size:512"`
	Enabled   bool      `gorm:"column:enabled;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (TenantIntegration) TableName() string {
	return "tenant_integrations"
}

// ProviderTag returns the integration's normalized provider.
func (i TenantIntegration) ProviderTag() Provider {
	return ParseProvider(i.Provider)
}

// ProjectIntegration binds a tenant integration to one project, scoped to an
// external project identifier (repository slug, project path, or issue key).
type ProjectIntegration struct {
	ID                 uint               `gorm:"column:id;primaryKey"`
	ProjectID          uint               `gorm:"column:project_id;not null;index:idx_project_integration_unique,unique,priority:2"`
	IntegrationID      uint               `gorm:"column:integration_id;not null;index:idx_project_integration_unique,unique,priority:1"`
	ExternalIdentifier string             `gorm:"column:external_identifier;size:255;not null"`
	LastSyncedAt       *time.Time         `gorm:"column:last_synced_at"`
	Project            *Project           `gorm:"foreignKey:ProjectID"`
	Integration        *TenantIntegration `gorm:"foreignKey:IntegrationID"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ProjectIntegration) TableName() string {
	return "project_integrations"
}

// ExternalIssue is the verbatim snapshot of one remote issue. RawPayloadJSON
// and CommentsJSON hold the provider-native structures exactly as ingested;
// nothing in this service mutates them.
type ExternalIssue struct {
	ID                   uint                `gorm:"column:id;primaryKey"`
	ProjectIntegrationID uint                `gorm:"column:project_integration_id;not null;index:idx_external_issue_identifier,unique,priority:1"`
	ExternalID           string              `gorm:"column:external_id;size:128;not null;index:idx_external_issue_identifier,unique,priority:2"`
	Title                string              `gorm:"column:title;size:512;not null"`
	Status               string              `gorm:"column:status;size:128"`
	Assignee             string              `gorm:"column:assignee;size:255"`
	URL                  string              `gorm:"column:url;size:1024"`
	LabelsJSON           string              `gorm:"column:labels;type:text"`
	ExternalUpdatedAt    *time.Time          `gorm:"column:external_updated_at"`
	RawPayloadJSON       string              `gorm:"column:raw_payload;type:text"`
	CommentsJSON         string              `gorm:"column:comments;type:text"`
	ProjectIntegration   *ProjectIntegration `gorm:"foreignKey:ProjectIntegrationID"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ExternalIssue) TableName() string {
	return "external_issues"
}

// Labels decodes the stored label array. Malformed or empty columns yield an
// empty slice, never an error.
func (issue ExternalIssue) Labels() []string {
	if strings.TrimSpace(issue.LabelsJSON) == "" {
		return []string{}
	}
	var labels []string
	if err := json.Unmarshal([]byte(issue.LabelsJSON), &labels); err != nil || labels == nil {
		return []string{}
	}
	return labels
}

// RawComments decodes the stored comment array into raw JSON documents, one
// per comment, preserving provider-native shape. Malformed columns yield an
// empty slice.
func (issue ExternalIssue) RawComments() []json.RawMessage {
	if strings.TrimSpace(issue.CommentsJSON) == "" {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(issue.CommentsJSON), &entries); err != nil {
		return nil
	}
	return entries
}

// LastActivityAt reports the best-known activity timestamp: the remote
// update time when the tracker supplied one, else the local creation time.
func (issue ExternalIssue) LastActivityAt() time.Time {
	if issue.ExternalUpdatedAt != nil {
		return *issue.ExternalUpdatedAt
	}
	return issue.CreatedAt
}
