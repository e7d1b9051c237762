package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/opsboard/commhub/internal/comms"
	"github.com/opsboard/commhub/internal/tracker"
	"github.com/opsboard/commhub/internal/users"
	"gorm.io/gorm"
)

func newTestHandler(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	models := []any{
		&tracker.Tenant{}, &tracker.Project{}, &tracker.TenantIntegration{},
		&tracker.ProjectIntegration{}, &tracker.ExternalIssue{},
		&users.User{}, &users.IdentityMap{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	identity, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct users service: %v", err)
	}
	commsService, err := comms.NewService(comms.ServiceConfig{Database: db, Identity: identity})
	if err != nil {
		t.Fatalf("failed to construct comms service: %v", err)
	}
	handler, err := NewHTTPHandler(Dependencies{CommsService: commsService})
	if err != nil {
		t.Fatalf("failed to construct handler: %v", err)
	}
	return handler, db
}

func seedCommentedIssue(t *testing.T, db *gorm.DB) {
	t.Helper()
	tenant := tracker.Tenant{Name: "acme"}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}
	project := tracker.Project{Name: "billing", TenantID: tenant.ID}
	if err := db.Create(&project).Error; err != nil {
		t.Fatalf("failed to create project: %v", err)
	}
	integration := tracker.TenantIntegration{TenantID: tenant.ID, Provider: "github", Name: "gh", Enabled: true}
	if err := db.Create(&integration).Error; err != nil {
		t.Fatalf("failed to create integration: %v", err)
	}
	binding := tracker.ProjectIntegration{ProjectID: project.ID, IntegrationID: integration.ID, ExternalIdentifier: "acme/billing"}
	if err := db.Create(&binding).Error; err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}
	issue := tracker.ExternalIssue{
		ProjectIntegrationID: binding.ID,
		ExternalID:           "7",
		Title:                "Export broken",
		Status:               "open",
		CommentsJSON:         `[{"id":"c1","author":"dana","body":"hello <script>x()</script>world"}]`,
	}
	if err := db.Create(&issue).Error; err != nil {
		t.Fatalf("failed to create issue: %v", err)
	}
}

func performRequest(handler http.Handler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, target, nil)
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestCommunicationsEndpointEmptyDatabase(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performRequest(handler, "/api/v1/communications")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var response struct {
		Communications []json.RawMessage `json:"communications"`
		Pagination     comms.Pagination  `json:"pagination"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Communications) != 0 || response.Pagination.Total != 0 {
		t.Fatalf("expected empty feed, got %s", recorder.Body.String())
	}
}

func TestCommunicationsEndpointReturnsSanitizedEntries(t *testing.T) {
	handler, db := newTestHandler(t)
	seedCommentedIssue(t, db)

	recorder := performRequest(handler, "/api/v1/communications")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var response comms.FeedPage
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Communications) != 1 {
		t.Fatalf("expected one entry, got %d", len(response.Communications))
	}
	entry := response.Communications[0]
	if entry.TenantName != "acme" || entry.IssueExternalID != "7" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Comment.BodyHTML != "hello world" {
		t.Fatalf("expected sanitized comment html, got %q", entry.Comment.BodyHTML)
	}
}

func TestCommunicationsEndpointEchoesClampedWindow(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performRequest(handler, "/api/v1/communications?limit=1000&offset=-4")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var response comms.FeedPage
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Pagination.Limit != comms.FlatFeedMaxLimit {
		t.Fatalf("expected limit cap, got %d", response.Pagination.Limit)
	}
	if response.Pagination.Offset != 0 {
		t.Fatalf("expected clamped offset, got %d", response.Pagination.Offset)
	}
}

func TestCommunicationsEndpointIgnoresUnparseableFilters(t *testing.T) {
	handler, db := newTestHandler(t)
	seedCommentedIssue(t, db)

	recorder := performRequest(handler, "/api/v1/communications?tenant_id=abc&limit=xyz")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var response comms.FeedPage
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Pagination.Total != 1 {
		t.Fatalf("unparseable filters should be ignored, got %#v", response.Pagination)
	}
	if response.Pagination.Limit != comms.FlatFeedDefaultLimit {
		t.Fatalf("unparseable limit should fall back to default, got %d", response.Pagination.Limit)
	}
}

func TestThreadsEndpointReturnsThreadView(t *testing.T) {
	handler, db := newTestHandler(t)
	seedCommentedIssue(t, db)

	recorder := performRequest(handler, "/api/v1/communications/threads")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var response comms.ThreadPage
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Threads) != 1 {
		t.Fatalf("expected one thread, got %d", len(response.Threads))
	}
	thread := response.Threads[0]
	if thread.CommentCount != 1 || len(thread.Comments) != 1 {
		t.Fatalf("unexpected thread: %#v", thread)
	}
	if thread.IssueTitle != "Export broken" {
		t.Fatalf("unexpected thread title %q", thread.IssueTitle)
	}
}

func TestThreadsEndpointIssueFilter(t *testing.T) {
	handler, db := newTestHandler(t)
	seedCommentedIssue(t, db)

	recorder := performRequest(handler, "/api/v1/communications/threads?issue_id=999999")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}

	var response comms.ThreadPage
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Pagination.Total != 0 || len(response.Threads) != 0 {
		t.Fatalf("expected no match for unknown issue, got %s", recorder.Body.String())
	}
}

func TestCommunicationsEndpointReportsServiceFailures(t *testing.T) {
	handler, db := newTestHandler(t)
	if err := db.Migrator().DropTable(&tracker.ExternalIssue{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	recorder := performRequest(handler, "/api/v1/communications")
	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", recorder.Code)
	}

	var response struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(response.Error, "Failed to fetch communications") {
		t.Fatalf("unexpected error payload %q", response.Error)
	}
}

func TestRouterRequiresCommsService(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestRouterAssignsRequestID(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder := performRequest(handler, "/healthz")
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", recorder.Code)
	}
	if recorder.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}
