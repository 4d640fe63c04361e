package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/audit"
	"github.com/aegisshield/biometric-engine/internal/forensic"
	"github.com/aegisshield/biometric-engine/internal/metrics"
)

// ForensicHandler handles recognition log and audit query requests
type ForensicHandler struct {
	factory *forensic.LogFactory
	store   *audit.Store
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewForensicHandler creates a new forensic handler
func NewForensicHandler(
	factory *forensic.LogFactory,
	store *audit.Store,
	collector *metrics.Collector,
	logger *zap.Logger,
) *ForensicHandler {
	return &ForensicHandler{
		factory: factory,
		store:   store,
		metrics: collector,
		logger:  logger,
	}
}

// RegisterRoutes registers recognition log and audit routes on the API group.
func (h *ForensicHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/recognitions/logs", h.CreateRecognitionLog)
	api.GET("/recognitions/logs/:log_id", h.GetRecognitionLog)
	api.GET("/audit/logs", h.GetAuditLogs)
	api.GET("/audit/logs/export", h.ExportAuditLogs)
	api.GET("/audit/statistics", h.GetAuditStatistics)
}

type createLogRequest struct {
	Operator struct {
		UserID     string `json:"userId" binding:"required"`
		UserName   string `json:"userName" binding:"required"`
		Role       string `json:"role"`
		Department string `json:"department"`
	} `json:"operator" binding:"required"`
	Source struct {
		Path       string    `json:"path" binding:"required"`
		Digest     string    `json:"digest"`
		UploadedAt time.Time `json:"uploadedAt"`
	} `json:"source" binding:"required"`
	Result *forensic.MatchResult `json:"result"`
	Method struct {
		ComparisonType string `json:"comparisonType"`
		Algorithm      string `json:"algorithm"`
		ModelVersion   string `json:"modelVersion"`
		DistanceMetric string `json:"distanceMetric"`
	} `json:"method"`
	CaseID            string `json:"caseId" binding:"required"`
	EvidenceID        string `json:"evidenceId"`
	ChainOfCustody    bool   `json:"chainOfCustody"`
	ProcessingPurpose string `json:"processingPurpose"`
}

func (h *ForensicHandler) CreateRecognitionLog(c *gin.Context) {
	var request createLogRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := h.factory.NewEntry(forensic.LogParams{
		Operator: forensic.Operator{
			UserID:     request.Operator.UserID,
			UserName:   request.Operator.UserName,
			Role:       request.Operator.Role,
			Department: request.Operator.Department,
		},
		Source: forensic.SourceRef{
			Path:       request.Source.Path,
			Digest:     request.Source.Digest,
			UploadedAt: request.Source.UploadedAt,
		},
		Result: request.Result,
		Method: forensic.Method{
			ComparisonType: request.Method.ComparisonType,
			Algorithm:      request.Method.Algorithm,
			ModelVersion:   request.Method.ModelVersion,
			DistanceMetric: request.Method.DistanceMetric,
		},
		CaseID:            request.CaseID,
		EvidenceID:        request.EvidenceID,
		ChainOfCustody:    request.ChainOfCustody,
		ProcessingPurpose: request.ProcessingPurpose,
	})

	if err := h.store.Append(c.Request.Context(), entry); err != nil {
		h.logger.Error("Failed to append recognition log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store recognition log"})
		return
	}
	h.metrics.RecordRecognitionLog()

	c.JSON(http.StatusCreated, entry)
}

func (h *ForensicHandler) GetRecognitionLog(c *gin.Context) {
	logID := c.Param("log_id")
	entry, ok := h.store.Get(logID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "recognition log not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *ForensicHandler) GetAuditLogs(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := h.store.Query(filters)
	c.JSON(http.StatusOK, gin.H{
		"logs":  entries,
		"total": len(entries),
	})
}

func (h *ForensicHandler) ExportAuditLogs(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := h.store.Query(filters)

	filename := fmt.Sprintf("recognition_logs_%s.csv", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Status(http.StatusOK)

	if err := forensic.ExportCSV(c.Writer, entries); err != nil {
		h.logger.Error("Failed to export recognition logs", zap.Error(err))
	}
}

func (h *ForensicHandler) GetAuditStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.GetStatistics())
}

func parseFilters(c *gin.Context) (audit.Filters, error) {
	filters := audit.Filters{
		OperatorID: c.Query("operator_id"),
		CaseID:     c.Query("case_id"),
	}

	if raw := c.Query("match_found"); raw != "" {
		matchFound, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, fmt.Errorf("invalid match_found: %w", err)
		}
		filters.MatchFound = &matchFound
	}
	if raw := c.Query("start_time"); raw != "" {
		startTime, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, fmt.Errorf("invalid start_time: %w", err)
		}
		filters.StartTime = &startTime
	}
	if raw := c.Query("end_time"); raw != "" {
		endTime, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, fmt.Errorf("invalid end_time: %w", err)
		}
		filters.EndTime = &endTime
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("invalid limit: %q", raw)
		}
		filters.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filters, fmt.Errorf("invalid offset: %q", raw)
		}
		filters.Offset = offset
	}

	return filters, nil
}
