package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/compliance"
	"github.com/aegisshield/biometric-engine/internal/imaging"
	"github.com/aegisshield/biometric-engine/internal/metrics"
)

// PhotoHandler handles photo validation and normalization requests
type PhotoHandler struct {
	analyzer   *imaging.Analyzer
	normalizer *imaging.Normalizer
	validator  *compliance.Validator
	cache      *compliance.ValidationCache
	metrics    *metrics.Collector
	maxUpload  int64
	logger     *zap.Logger
}

// NewPhotoHandler creates a new photo handler. The cache may be nil when
// result caching is disabled.
func NewPhotoHandler(
	analyzer *imaging.Analyzer,
	normalizer *imaging.Normalizer,
	validator *compliance.Validator,
	cache *compliance.ValidationCache,
	collector *metrics.Collector,
	maxUpload int64,
	logger *zap.Logger,
) *PhotoHandler {
	return &PhotoHandler{
		analyzer:   analyzer,
		normalizer: normalizer,
		validator:  validator,
		cache:      cache,
		metrics:    collector,
		maxUpload:  maxUpload,
		logger:     logger,
	}
}

// RegisterRoutes registers photo routes on the API group.
func (h *PhotoHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/photos/validate", h.ValidatePhoto)
	api.POST("/photos/normalize", h.NormalizePhoto)
}

type validatePhotoRequest struct {
	// ImageData is the base64-encoded image payload.
	ImageData string `json:"imageData" binding:"required"`
	MIMEType  string `json:"mimeType" binding:"required"`
	Filename  string `json:"filename" binding:"required"`
	// SizeBytes defaults to the decoded payload length when zero.
	SizeBytes int64 `json:"sizeBytes"`
	// LastModified is the upload's mtime in unix milliseconds. Together with
	// filename and size it forms the cache key.
	LastModified int64 `json:"lastModified"`
}

func (h *PhotoHandler) ValidatePhoto(c *gin.Context) {
	var request validatePhotoRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(request.ImageData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageData is not valid base64"})
		return
	}
	if h.maxUpload > 0 && int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds maximum upload size"})
		return
	}

	sizeBytes := request.SizeBytes
	if sizeBytes == 0 {
		sizeBytes = int64(len(data))
	}

	cacheKey := compliance.CacheKey{
		Filename:     request.Filename,
		SizeBytes:    sizeBytes,
		LastModified: request.LastModified,
	}
	if h.cache != nil {
		if cached, ok := h.cache.Get(cacheKey); ok {
			h.metrics.RecordCacheLookup(true)
			c.JSON(http.StatusOK, cached)
			return
		}
		h.metrics.RecordCacheLookup(false)
	}

	input := compliance.ImageInput{
		Filename:  request.Filename,
		MIMEType:  request.MIMEType,
		SizeBytes: sizeBytes,
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), data)
	var stats *imaging.PixelStatistics
	if err != nil {
		var loadErr *imaging.LoadError
		if !errors.As(err, &loadErr) {
			h.logger.Error("Image analysis failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze image"})
			return
		}
		// Decode failures are a validation outcome, not a request failure.
	} else {
		stats = &analysis.Stats
		input.Width = analysis.Width
		input.Height = analysis.Height
	}

	result := h.validator.Validate(input, stats)
	h.metrics.RecordValidation(result.IsValid, result.Metadata.QualityScore)

	if h.cache != nil {
		h.cache.Put(cacheKey, result)
	}

	c.JSON(http.StatusOK, result)
}

type normalizePhotoRequest struct {
	ImageData string `json:"imageData" binding:"required"`
	Filename  string `json:"filename"`
}

type normalizePhotoResponse struct {
	ImageData      string   `json:"imageData"`
	Format         string   `json:"format"`
	Operations     []string `json:"operations"`
	OriginalWidth  int      `json:"originalWidth"`
	OriginalHeight int      `json:"originalHeight"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	SizeBytes      int64    `json:"sizeBytes"`
	NormalizedAt   string   `json:"normalizedAt"`
}

func (h *PhotoHandler) NormalizePhoto(c *gin.Context) {
	var request normalizePhotoRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(request.ImageData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageData is not valid base64"})
		return
	}
	if h.maxUpload > 0 && int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds maximum upload size"})
		return
	}

	result, err := h.normalizer.Normalize(c.Request.Context(), data)
	if err != nil {
		var loadErr *imaging.LoadError
		if errors.As(err, &loadErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": loadErr.Error()})
			return
		}
		h.logger.Error("Image normalization failed",
			zap.String("filename", request.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to normalize image"})
		return
	}
	h.metrics.RecordNormalization()

	c.JSON(http.StatusOK, normalizePhotoResponse{
		ImageData:      base64.StdEncoding.EncodeToString(result.Data),
		Format:         result.Format,
		Operations:     result.Operations,
		OriginalWidth:  result.OriginalWidth,
		OriginalHeight: result.OriginalHeight,
		Width:          result.Width,
		Height:         result.Height,
		SizeBytes:      int64(len(result.Data)),
		NormalizedAt:   time.Now().UTC().Format(time.RFC3339),
	})
}
