package database

import (
	"errors"
	"time"

	"github.com/opsboard/commhub/internal/tracker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationNormalizeProviderCasing = "2026-07-14_normalize_provider_casing"
	migrationBackfillEmptyComments   = "2026-08-02_backfill_empty_comment_payloads"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationNormalizeProviderCasing, apply: normalizeProviderCasing},
		{name: migrationBackfillEmptyComments, apply: backfillEmptyCommentPayloads},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// normalizeProviderCasing lowercases stored provider tags so integrations
// written before provider parsing was centralized match the canonical form.
func normalizeProviderCasing(db *gorm.DB) error {
	return db.Model(&tracker.TenantIntegration{}).
		Where("provider <> lower(provider)").
		Update("provider", gorm.Expr("lower(provider)")).Error
}

// backfillEmptyCommentPayloads rewrites NULL and blank comment columns to an
// empty JSON array so json_array_length can be applied uniformly.
func backfillEmptyCommentPayloads(db *gorm.DB) error {
	return db.Model(&tracker.ExternalIssue{}).
		Where("comments IS NULL OR comments = ''").
		Update("comments", "[]").Error
}
