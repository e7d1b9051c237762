package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsboard/commhub/internal/comms"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

var errMissingCommsService = errors.New("comms service dependency required")

// Dependencies wires the HTTP surface to its collaborators.
type Dependencies struct {
	CommsService *comms.Service
	Logger       *zap.Logger
}

// NewHTTPHandler builds the API router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.CommsService == nil {
		return nil, errMissingCommsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		commsService: deps.CommsService,
		logger:       logger,
	}

	router.Use(handler.tagRequest)
	router.GET("/healthz", handler.handleHealth)

	v1 := router.Group("/api/v1")
	v1.GET("/communications", handler.handleCommunications)
	v1.GET("/communications/threads", handler.handleCommunicationThreads)

	return router, nil
}

type httpHandler struct {
	commsService *comms.Service
	logger       *zap.Logger
}

// tagRequest assigns each request an identifier and logs its outcome.
func (h *httpHandler) tagRequest(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		if generated, err := uuid.NewV7(); err == nil {
			requestID = generated.String()
		}
	}
	c.Header(requestIDHeader, requestID)

	started := time.Now()
	c.Next()

	h.logger.Info("request completed",
		zap.String("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(started)))
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleCommunications(c *gin.Context) {
	query := comms.FeedQuery{
		TenantID:  uintParam(c, "tenant_id"),
		ProjectID: uintParam(c, "project_id"),
		Limit:     intParam(c, "limit"),
		Offset:    intParam(c, "offset"),
		Sort:      strings.ToLower(strings.TrimSpace(c.DefaultQuery("sort", comms.SortRecent))),
	}

	page, err := h.commsService.ListCommunications(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to fetch communications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to fetch communications: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *httpHandler) handleCommunicationThreads(c *gin.Context) {
	query := comms.ThreadQuery{
		TenantID:  uintParam(c, "tenant_id"),
		ProjectID: uintParam(c, "project_id"),
		IssueID:   uintParam(c, "issue_id"),
		Limit:     intParam(c, "limit"),
		Offset:    intParam(c, "offset"),
	}

	page, err := h.commsService.ListThreads(c.Request.Context(), query)
	if err != nil {
		h.logger.Error("failed to fetch communication threads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to fetch communication threads: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, page)
}

// uintParam reads an optional positive integer query parameter. Absent,
// unparseable, and non-positive values are treated as no filter.
func uintParam(c *gin.Context, name string) *uint {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || parsed == 0 {
		return nil
	}
	value := uint(parsed)
	return &value
}

// intParam reads an optional integer query parameter, defaulting to zero so
// the service applies its documented window defaults.
func intParam(c *gin.Context, name string) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
