package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/opsboard/commhub/internal/tracker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsNormalizesProviderCasing(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&tracker.Tenant{}, &tracker.TenantIntegration{}, &tracker.ExternalIssue{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	integration := tracker.TenantIntegration{
		TenantID: 1,
		Provider: "GitHub",
		Name:     "legacy",
		Enabled:  true,
	}
	if err := database.Create(&integration).Error; err != nil {
		testContext.Fatalf("failed to insert integration: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored tracker.TenantIntegration
	if err := database.Take(&stored, integration.ID).Error; err != nil {
		testContext.Fatalf("failed to reload integration: %v", err)
	}
	if stored.Provider != "github" {
		testContext.Fatalf("expected lowercased provider, got %q", stored.Provider)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationNormalizeProviderCasing).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsBackfillsEmptyComments(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "backfill.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&tracker.TenantIntegration{}, &tracker.ExternalIssue{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	issues := []tracker.ExternalIssue{
		{ProjectIntegrationID: 1, ExternalID: "1", Title: "blank comments", CommentsJSON: ""},
		{ProjectIntegrationID: 1, ExternalID: "2", Title: "existing comments", CommentsJSON: `[{"id":"c1"}]`},
	}
	for index := range issues {
		if err := database.Create(&issues[index]).Error; err != nil {
			testContext.Fatalf("failed to insert issue: %v", err)
		}
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var blank tracker.ExternalIssue
	if err := database.Take(&blank, issues[0].ID).Error; err != nil {
		testContext.Fatalf("failed to reload issue: %v", err)
	}
	if blank.CommentsJSON != "[]" {
		testContext.Fatalf("expected blank comments backfilled to empty array, got %q", blank.CommentsJSON)
	}

	var populated tracker.ExternalIssue
	if err := database.Take(&populated, issues[1].ID).Error; err != nil {
		testContext.Fatalf("failed to reload issue: %v", err)
	}
	if populated.CommentsJSON != `[{"id":"c1"}]` {
		testContext.Fatalf("expected populated comments untouched, got %q", populated.CommentsJSON)
	}
}

func TestApplyMigrationsRunsOnlyOnce(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "idempotent.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to re-apply migrations: %v", err)
	}

	var count int64
	if err := database.Model(&migrationRecord{}).Count(&count).Error; err != nil {
		testContext.Fatalf("failed to count migration records: %v", err)
	}
	if count != 2 {
		testContext.Fatalf("expected two migration records, got %d", count)
	}
}
