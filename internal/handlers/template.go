package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/forensic"
	"github.com/aegisshield/biometric-engine/internal/metrics"
	"github.com/aegisshield/biometric-engine/internal/template"
)

// TemplateHandler handles biometric template requests
type TemplateHandler struct {
	builder   *template.Builder
	validator *template.Validator
	security  *forensic.MetadataFactory
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(
	builder *template.Builder,
	validator *template.Validator,
	security *forensic.MetadataFactory,
	collector *metrics.Collector,
	logger *zap.Logger,
) *TemplateHandler {
	return &TemplateHandler{
		builder:   builder,
		validator: validator,
		security:  security,
		metrics:   collector,
		logger:    logger,
	}
}

// RegisterRoutes registers template routes on the API group.
func (h *TemplateHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/templates", h.BuildTemplate)
	api.POST("/templates/validate", h.ValidateTemplate)
}

type buildTemplateRequest struct {
	FeatureVector []float64  `json:"featureVector" binding:"required,min=1"`
	Algorithm     string     `json:"algorithm" binding:"required"`
	ImageRef      string     `json:"imageRef"`
	CaptureDevice string     `json:"captureDevice"`
	CapturedBy    string     `json:"capturedBy"`
	CapturedAt    *time.Time `json:"capturedAt"`
	ModelVersion  string     `json:"modelVersion"`
	Framework     string     `json:"framework"`
	ImageScore    int        `json:"imageScore"`
	// IncludeSecurity attaches handling metadata for the stored artifact.
	IncludeSecurity bool `json:"includeSecurity"`
}

type buildTemplateResponse struct {
	Template *template.BiometricTemplate `json:"template"`
	Security *forensic.SecurityMetadata  `json:"security,omitempty"`
}

func (h *TemplateHandler) BuildTemplate(c *gin.Context) {
	var request buildTemplateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	capture := &template.CaptureMetadata{
		ImageRef:      request.ImageRef,
		CaptureDevice: request.CaptureDevice,
		CapturedBy:    request.CapturedBy,
		CapturedAt:    request.CapturedAt,
		ModelVersion:  request.ModelVersion,
		Framework:     request.Framework,
		ImageScore:    request.ImageScore,
	}

	tpl := h.builder.Build(request.FeatureVector, template.Algorithm(request.Algorithm), capture)
	h.metrics.RecordTemplateBuilt(request.Algorithm)

	response := buildTemplateResponse{Template: tpl}
	if request.IncludeSecurity {
		response.Security = h.security.ForArtifact("biometric_template")
	}

	c.JSON(http.StatusCreated, response)
}

func (h *TemplateHandler) ValidateTemplate(c *gin.Context) {
	var tpl template.BiometricTemplate
	if err := c.ShouldBindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.validator.Validate(&tpl)

	integrityFailure := false
	for _, issue := range result.Errors {
		if issue.Code == template.CodeIntegrityMismatch {
			integrityFailure = true
			break
		}
	}
	if integrityFailure {
		h.logger.Warn("Template integrity digest mismatch",
			zap.String("template_id", tpl.TemplateID))
	}
	h.metrics.RecordTemplateValidation(string(result.ComplianceLevel), integrityFailure)

	c.JSON(http.StatusOK, result)
}
