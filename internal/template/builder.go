package template

import (
	"crypto/rand"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TemplateVersion is the record format version stamped on new templates.
const TemplateVersion = "1.0"

// l2Tolerance is how far the L2 norm may deviate from 1.0 for a vector to
// still count as normalized.
const l2Tolerance = 0.01

const idAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CaptureMetadata is the optional capture context supplied alongside the
// feature vector.
type CaptureMetadata struct {
	ImageRef      string
	CaptureDevice string
	CapturedBy    string
	CapturedAt    *time.Time
	ModelVersion  string
	Framework     string
	ImageScore    int
}

// Builder wraps caller-supplied feature vectors into standardized template
// records. The builder is lenient: malformed input degrades to logged
// warnings, never to a failed build.
type Builder struct {
	logger        *zap.Logger
	digestVersion string
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLegacyDigest makes the builder stamp templates with the v1 digest
// scheme, for interop with records written before the SHA-256 scheme.
func WithLegacyDigest() BuilderOption {
	return func(b *Builder) { b.digestVersion = DigestV1 }
}

// NewBuilder creates a template builder. New templates carry the v2 digest
// unless WithLegacyDigest is given.
func NewBuilder(logger *zap.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		logger:        logger.Named("template_builder"),
		digestVersion: DigestV2,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build wraps the vector and algorithm identity into a template record with a
// fresh unique id and an integrity digest. A vector whose length does not
// match the algorithm's expected dimension is accepted with a logged warning.
func (b *Builder) Build(vector []float64, algorithm Algorithm, capture *CaptureMetadata) *BiometricTemplate {
	expected, knownAlgorithm := algorithm.ExpectedDimension()
	if knownAlgorithm && len(vector) != expected {
		b.logger.Warn("Feature vector dimension does not match algorithm",
			zap.String("algorithm", string(algorithm)),
			zap.Int("expected", expected),
			zap.Int("actual", len(vector)))
	}
	if !knownAlgorithm {
		b.logger.Warn("Unknown algorithm identifier", zap.String("algorithm", string(algorithm)))
	}

	now := time.Now().UTC()
	digest, err := computeDigest(b.digestVersion, vector)
	if err != nil {
		// Unreachable for the versions the builder stamps; degrade loudly.
		b.logger.Error("Digest computation failed", zap.Error(err))
	}

	tpl := &BiometricTemplate{
		StandardID: StandardID,
		Version:    TemplateVersion,
		TemplateID: generateTemplateID(),
		FeatureVector: FeatureVector{
			Data:       vector,
			Dimension:  len(vector),
			Normalized: isL2Normalized(vector),
		},
		Encoding: Encoding{
			Algorithm:    string(algorithm),
			EncodingDate: now,
		},
		Quality: Quality{
			VectorComplete: vectorCompleteness(vector, algorithm),
		},
		CreatedAt:       now,
		DigestVersion:   b.digestVersion,
		IntegrityDigest: digest,
	}

	if capture != nil {
		tpl.Encoding.ModelVersion = capture.ModelVersion
		tpl.Encoding.Framework = capture.Framework
		tpl.Quality.ImageScore = capture.ImageScore
		tpl.Source = Source{
			ImageRef:      capture.ImageRef,
			CaptureDevice: capture.CaptureDevice,
			CapturedBy:    capture.CapturedBy,
			CapturedAt:    capture.CapturedAt,
		}
	}

	b.logger.Debug("Template built",
		zap.String("template_id", tpl.TemplateID),
		zap.String("algorithm", string(algorithm)),
		zap.Int("dimension", tpl.FeatureVector.Dimension),
		zap.Bool("normalized", tpl.FeatureVector.Normalized))

	return tpl
}

// isL2Normalized reports whether the vector's L2 norm is within tolerance of
// 1.0.
func isL2Normalized(vector []float64) bool {
	if len(vector) == 0 {
		return false
	}
	var sum float64
	for _, v := range vector {
		sum += v * v
	}
	return math.Abs(math.Sqrt(sum)-1.0) < l2Tolerance
}

// vectorCompleteness is the fraction of the expected dimension the vector
// actually covers, capped at 1.0. Unknown algorithms report 1.0.
func vectorCompleteness(vector []float64, algorithm Algorithm) float64 {
	expected, ok := algorithm.ExpectedDimension()
	if !ok || expected == 0 {
		return 1.0
	}
	ratio := float64(len(vector)) / float64(expected)
	if ratio > 1.0 {
		return 1.0
	}
	return ratio
}

// generateTemplateID produces a unique id of the form BT-<time36>-<rand9>:
// a monotonic-time-derived prefix plus a nine-character random suffix, all
// uppercase.
func generateTemplateID() string {
	timePart := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return "BT-" + timePart + "-" + randomID(9)
}

// randomID returns n uppercase alphanumeric characters from crypto/rand.
func randomID(n int) string {
	buf := make([]byte, n)
	rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(out)
}
