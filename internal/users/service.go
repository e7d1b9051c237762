package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/opsboard/commhub/internal/tracker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceConfig describes the dependencies required for author resolution.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service resolves remote tracker author names to local user identities.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// identityColumn selects the provider-specific identity field a remote name
// matches against.
func identityColumn(provider tracker.Provider) string {
	switch provider {
	case tracker.ProviderGitHub:
		return "github_username"
	case tracker.ProviderGitLab:
		return "gitlab_username"
	case tracker.ProviderJira:
		return "jira_account_id"
	default:
		return ""
	}
}

// ResolveAuthor maps a remote author name to a local identity. Resolution is
// strictly best-effort: missing mappings, unknown providers, and lookup
// failures all degrade to the remote-name-only author so a single slow or
// broken lookup can never abort comment rendering.
func (s *Service) ResolveAuthor(ctx context.Context, remoteName string, provider tracker.Provider) RemoteAuthor {
	author := UnmappedAuthor(remoteName)
	trimmed := strings.TrimSpace(remoteName)
	if trimmed == "" {
		return author
	}

	column := identityColumn(provider)
	if column == "" {
		return author
	}

	var identity IdentityMap
	err := s.db.WithContext(ctx).
		Preload("User").
		Where(column+" = ?", trimmed).
		First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return author
	}
	if err != nil {
		s.logger.Debug("identity lookup failed",
			zap.String("provider", provider.String()),
			zap.String("remote_name", trimmed),
			zap.Error(err))
		return author
	}
	if identity.User == nil {
		return author
	}

	displayName := identity.User.DisplayName()
	author.LocalUserID = &identity.UserID
	author.LocalUserName = &displayName
	author.DisplayName = displayName
	return author
}
