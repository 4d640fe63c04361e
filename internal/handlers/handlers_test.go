package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/audit"
	"github.com/aegisshield/biometric-engine/internal/compliance"
	"github.com/aegisshield/biometric-engine/internal/config"
	"github.com/aegisshield/biometric-engine/internal/forensic"
	"github.com/aegisshield/biometric-engine/internal/imaging"
	"github.com/aegisshield/biometric-engine/internal/metrics"
	"github.com/aegisshield/biometric-engine/internal/template"
)

type testEnv struct {
	router *gin.Engine
	store  *audit.Store
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	collector := metrics.NewCollector(prometheus.NewRegistry())

	store := audit.NewStore(config.AuditConfig{
		BufferSize:    64,
		BatchSize:     8,
		FlushInterval: time.Hour,
	}, logger)
	require.NoError(t, store.Start(context.Background()))
	t.Cleanup(func() { store.Stop(context.Background()) })

	photoHandler := NewPhotoHandler(
		imaging.NewAnalyzer(logger),
		imaging.NewNormalizer(logger),
		compliance.NewValidator(logger),
		compliance.NewValidationCache(16),
		collector,
		32*1024*1024,
		logger,
	)
	templateHandler := NewTemplateHandler(
		template.NewBuilder(logger),
		template.NewValidator(logger),
		forensic.NewMetadataFactory(),
		collector,
		logger,
	)
	forensicHandler := NewForensicHandler(
		forensic.NewLogFactory(logger),
		store,
		collector,
		logger,
	)

	router := gin.New()
	api := router.Group("/api/v1")
	photoHandler.RegisterRoutes(api)
	templateHandler.RegisterRoutes(api)
	forensicHandler.RegisterRoutes(api)

	healthHandler := NewHealthHandler(store)
	healthHandler.RegisterRoutes(router)

	return &testEnv{router: router, store: store}
}

func (e *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func pngBase64(t *testing.T, width, height int, fill color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestValidatePhotoEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	recorder := env.doJSON(t, http.MethodPost, "/api/v1/photos/validate", gin.H{
		"imageData": pngBase64(t, 100, 100, color.RGBA{R: 128, G: 128, B: 128, A: 255}),
		"mimeType":  "image/png",
		"filename":  "small.png",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var result compliance.ValidationResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))

	assert.False(t, result.IsValid)
	assert.Equal(t, 100, result.Metadata.Width)
	assert.Equal(t, "PNG", result.Metadata.Format)
	assert.NotEmpty(t, result.Errors)
}

func TestValidatePhotoBadRequests(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("missing fields", func(t *testing.T) {
		recorder := env.doJSON(t, http.MethodPost, "/api/v1/photos/validate", gin.H{})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})

	t.Run("invalid base64", func(t *testing.T) {
		recorder := env.doJSON(t, http.MethodPost, "/api/v1/photos/validate", gin.H{
			"imageData": "not-base64!!!",
			"mimeType":  "image/png",
			"filename":  "x.png",
		})
		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestValidatePhotoUndecodableBytes(t *testing.T) {
	env := setupTestEnv(t)

	recorder := env.doJSON(t, http.MethodPost, "/api/v1/photos/validate", gin.H{
		"imageData": base64.StdEncoding.EncodeToString([]byte("not an image")),
		"mimeType":  "image/jpeg",
		"filename":  "corrupt.jpg",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var result compliance.ValidationResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, compliance.CodeLoadError, result.Errors[0].Code)
}

func TestValidatePhotoCacheRoundTrip(t *testing.T) {
	env := setupTestEnv(t)

	body := gin.H{
		"imageData":    pngBase64(t, 64, 64, color.RGBA{R: 128, G: 128, B: 128, A: 255}),
		"mimeType":     "image/png",
		"filename":     "cached.png",
		"lastModified": 1756600000000,
	}

	first := env.doJSON(t, http.MethodPost, "/api/v1/photos/validate", body)
	require.Equal(t, http.StatusOK, first.Code)

	second := env.doJSON(t, http.MethodPost, "/api/v1/photos/validate", body)
	require.Equal(t, http.StatusOK, second.Code)

	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestNormalizePhotoEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	recorder := env.doJSON(t, http.MethodPost, "/api/v1/photos/normalize", gin.H{
		"imageData": pngBase64(t, 300, 400, color.RGBA{R: 140, G: 140, B: 140, A: 255}),
		"filename":  "probe.png",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		ImageData  string   `json:"imageData"`
		Format     string   `json:"format"`
		Width      int      `json:"width"`
		Height     int      `json:"height"`
		Operations []string `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, "JPEG", response.Format)
	assert.Equal(t, 1024, response.Width)
	assert.Equal(t, 1365, response.Height)
	assert.NotEmpty(t, response.Operations)

	decoded, err := base64.StdEncoding.DecodeString(response.ImageData)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(decoded))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 1024, img.Bounds().Dx())
}

func TestNormalizePhotoUndecodableBytes(t *testing.T) {
	env := setupTestEnv(t)

	recorder := env.doJSON(t, http.MethodPost, "/api/v1/photos/normalize", gin.H{
		"imageData": base64.StdEncoding.EncodeToString([]byte("garbage")),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestBuildTemplateEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	vector := make([]float64, 128)
	for i := range vector {
		vector[i] = 0.0883883476
	}

	recorder := env.doJSON(t, http.MethodPost, "/api/v1/templates", gin.H{
		"featureVector":   vector,
		"algorithm":       "FaceNet",
		"modelVersion":    "facenet-2024.2",
		"imageScore":      88,
		"includeSecurity": true,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var response struct {
		Template *template.BiometricTemplate `json:"template"`
		Security *forensic.SecurityMetadata  `json:"security"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	require.NotNil(t, response.Template)
	assert.Regexp(t, `^BT-`, response.Template.TemplateID)
	assert.Equal(t, 128, response.Template.FeatureVector.Dimension)
	assert.NotEmpty(t, response.Template.IntegrityDigest)

	require.NotNil(t, response.Security)
	assert.Equal(t, "biometric_template", response.Security.ArtifactType)
}

func TestValidateTemplateEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	builder := template.NewBuilder(zap.NewNop())
	vector := make([]float64, 128)
	for i := range vector {
		vector[i] = 0.0883883476
	}
	tpl := builder.Build(vector, template.AlgorithmFaceNet, nil)

	t.Run("intact template validates", func(t *testing.T) {
		recorder := env.doJSON(t, http.MethodPost, "/api/v1/templates/validate", tpl)
		require.Equal(t, http.StatusOK, recorder.Code)

		var result template.TemplateValidationResult
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.True(t, result.IsValid)
		assert.Equal(t, template.ComplianceFull, result.ComplianceLevel)
	})

	t.Run("tampered template is rejected", func(t *testing.T) {
		tampered := *tpl
		tampered.IntegrityDigest = "0000000000000000"

		recorder := env.doJSON(t, http.MethodPost, "/api/v1/templates/validate", tampered)
		require.Equal(t, http.StatusOK, recorder.Code)

		var result template.TemplateValidationResult
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
		assert.False(t, result.IsValid)
		assert.Equal(t, template.ComplianceNonCompliant, result.ComplianceLevel)
	})
}

func recognitionLogBody() gin.H {
	return gin.H{
		"operator": gin.H{
			"userId":   "op-104",
			"userName": "A. Virtanen",
			"role":     "investigator",
		},
		"source": gin.H{
			"path": "cases/2026-0451/probe.jpg",
		},
		"result": gin.H{
			"matchFound":       true,
			"matchedSubjectId": "subj-889",
			"confidenceScore":  0.93,
			"threshold":        0.85,
		},
		"caseId":         "2026-0451",
		"chainOfCustody": true,
	}
}

func TestRecognitionLogLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	created := env.doJSON(t, http.MethodPost, "/api/v1/recognitions/logs", recognitionLogBody())
	require.Equal(t, http.StatusCreated, created.Code)

	var entry forensic.RecognitionLogEntry
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &entry))
	assert.Regexp(t, `^FRL-\d{8}-`, entry.LogID)
	assert.Equal(t, "2026-0451", entry.Forensic.CaseID)

	fetched := env.doJSON(t, http.MethodGet, "/api/v1/recognitions/logs/"+entry.LogID, nil)
	assert.Equal(t, http.StatusOK, fetched.Code)

	missing := env.doJSON(t, http.MethodGet, "/api/v1/recognitions/logs/FRL-00000000-NOPE", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	listed := env.doJSON(t, http.MethodGet, "/api/v1/audit/logs?operator_id=op-104", nil)
	require.Equal(t, http.StatusOK, listed.Code)

	var listResponse struct {
		Logs  []forensic.RecognitionLogEntry `json:"logs"`
		Total int                            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(listed.Body.Bytes(), &listResponse))
	assert.Equal(t, 1, listResponse.Total)
}

func TestRecognitionLogMissingCaseID(t *testing.T) {
	env := setupTestEnv(t)

	body := recognitionLogBody()
	delete(body, "caseId")

	recorder := env.doJSON(t, http.MethodPost, "/api/v1/recognitions/logs", body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAuditLogsBadFilter(t *testing.T) {
	env := setupTestEnv(t)

	recorder := env.doJSON(t, http.MethodGet, "/api/v1/audit/logs?match_found=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestAuditLogsExportEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	created := env.doJSON(t, http.MethodPost, "/api/v1/recognitions/logs", recognitionLogBody())
	require.Equal(t, http.StatusCreated, created.Code)

	recorder := env.doJSON(t, http.MethodGet, "/api/v1/audit/logs/export", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/csv", recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, recorder.Body.String(), "log_id,timestamp,operator_id")
	assert.Contains(t, recorder.Body.String(), "op-104")
}

func TestAuditStatisticsEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	created := env.doJSON(t, http.MethodPost, "/api/v1/recognitions/logs", recognitionLogBody())
	require.Equal(t, http.StatusCreated, created.Code)

	recorder := env.doJSON(t, http.MethodGet, "/api/v1/audit/statistics", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var stats audit.Statistics
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.MatchesFound)
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	recorder := env.doJSON(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"healthy"`)
}
