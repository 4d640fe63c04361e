package template

import (
	"time"

	"github.com/aegisshield/biometric-engine/internal/compliance"
)

// StandardID identifies the template interchange profile.
const StandardID = "ISO/IEC 19794-5"

// standardFamily is the substring a template's standard tag must carry to be
// structurally acceptable.
const standardFamily = "19794"

// Algorithm identifies the facial-recognition model family that produced a
// feature vector.
type Algorithm string

const (
	AlgorithmFaceNet  Algorithm = "FaceNet"
	AlgorithmResNet50 Algorithm = "ResNet-50"
	AlgorithmArcFace  Algorithm = "ArcFace"
	AlgorithmDeepFace Algorithm = "DeepFace"
	AlgorithmVGGFace  Algorithm = "VGGFace"
	AlgorithmOpenFace Algorithm = "OpenFace"
)

var expectedDimensions = map[Algorithm]int{
	AlgorithmFaceNet:  128,
	AlgorithmResNet50: 512,
	AlgorithmArcFace:  512,
	AlgorithmDeepFace: 4096,
	AlgorithmVGGFace:  2622,
	AlgorithmOpenFace: 128,
}

// ExpectedDimension returns the feature vector length the algorithm is known
// to produce, and whether the algorithm is known at all.
func (a Algorithm) ExpectedDimension() (int, bool) {
	dim, ok := expectedDimensions[a]
	return dim, ok
}

// FeatureVector wraps the raw embedding. Dimension always equals len(Data);
// Normalized reports whether the L2 norm of Data is within 0.01 of 1.0.
type FeatureVector struct {
	Data       []float64 `json:"data"`
	Dimension  int       `json:"dimension"`
	Normalized bool      `json:"normalized"`
}

// Encoding records the provenance of the feature vector.
type Encoding struct {
	Algorithm    string    `json:"algorithm"`
	ModelVersion string    `json:"modelVersion"`
	Framework    string    `json:"framework"`
	EncodingDate time.Time `json:"encodingDate"`
}

// Quality carries the quality scores attached at capture time.
type Quality struct {
	ImageScore     int     `json:"imageScore"`
	VectorComplete float64 `json:"vectorComplete"`
}

// Source describes the capture context the vector came from.
type Source struct {
	ImageRef      string     `json:"imageRef,omitempty"`
	CaptureDevice string     `json:"captureDevice,omitempty"`
	CapturedBy    string     `json:"capturedBy,omitempty"`
	CapturedAt    *time.Time `json:"capturedAt,omitempty"`
}

// Digest scheme versions. V1 is the legacy digest over the first ten vector
// elements; V2 is a SHA-256 digest over the whole vector.
const (
	DigestV1 = "v1"
	DigestV2 = "v2"
)

// BiometricTemplate is the standardized, integrity-checked wrapper around a
// feature vector. Field names are the wire contract.
type BiometricTemplate struct {
	StandardID      string        `json:"standardId"`
	Version         string        `json:"version"`
	TemplateID      string        `json:"templateId"`
	FeatureVector   FeatureVector `json:"featureVector"`
	Encoding        Encoding      `json:"encoding"`
	Quality         Quality       `json:"quality"`
	Source          Source        `json:"source"`
	CreatedAt       time.Time     `json:"createdAt"`
	DigestVersion   string        `json:"digestVersion"`
	IntegrityDigest string        `json:"integrityDigest"`
}

// ComplianceLevel grades a template validation outcome.
type ComplianceLevel string

const (
	ComplianceFull         ComplianceLevel = "full"
	CompliancePartial      ComplianceLevel = "partial"
	ComplianceNonCompliant ComplianceLevel = "non_compliant"
)

// Validation issue codes.
const (
	CodeInvalidStandard      = "INVALID_STANDARD"
	CodeMissingFeatureVector = "MISSING_FEATURE_VECTOR"
	CodeMissingAlgorithm     = "MISSING_ALGORITHM"
	CodeDimensionMismatch    = "DIMENSION_MISMATCH"
	CodeUnknownDigestVersion = "UNKNOWN_DIGEST_VERSION"
	CodeIntegrityMismatch    = "INTEGRITY_MISMATCH"
)

// TemplateValidationResult is the structured outcome of re-validating a
// stored template.
type TemplateValidationResult struct {
	IsValid         bool               `json:"isValid"`
	Errors          []compliance.Issue `json:"errors"`
	Warnings        []compliance.Issue `json:"warnings"`
	ComplianceLevel ComplianceLevel    `json:"complianceLevel"`
}
