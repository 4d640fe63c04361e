package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/compliance"
)

func templateIssueCodes(issues []compliance.Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	codes := make([]string, 0, len(issues))
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestValidateFreshTemplateRoundTrip(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	v := NewValidator(zap.NewNop())

	tpl := b.Build(unitVector(128), AlgorithmFaceNet, nil)
	result := v.Validate(tpl)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, ComplianceFull, result.ComplianceLevel)
}

func TestValidateDetectsTamperedVector(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	v := NewValidator(zap.NewNop())

	tpl := b.Build(unitVector(128), AlgorithmFaceNet, nil)
	tpl.FeatureVector.Data[3] += 0.25

	result := v.Validate(tpl)

	assert.False(t, result.IsValid)
	assert.Contains(t, templateIssueCodes(result.Errors), CodeIntegrityMismatch)
	assert.Equal(t, ComplianceNonCompliant, result.ComplianceLevel)
}

func TestLegacyDigestBlindSpot(t *testing.T) {
	b := NewBuilder(zap.NewNop(), WithLegacyDigest())
	v := NewValidator(zap.NewNop())

	t.Run("detects mutation of the leading element", func(t *testing.T) {
		tpl := b.Build(unitVector(128), AlgorithmFaceNet, nil)
		tpl.FeatureVector.Data[0] += 0.5

		result := v.Validate(tpl)
		assert.Contains(t, templateIssueCodes(result.Errors), CodeIntegrityMismatch)
	})

	t.Run("misses mutation outside the truncated window", func(t *testing.T) {
		tpl := b.Build(unitVector(128), AlgorithmFaceNet, nil)
		tpl.FeatureVector.Data[64] += 0.5

		result := v.Validate(tpl)
		assert.True(t, result.IsValid)
	})
}

func TestV2DigestCoversWholeVector(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	v := NewValidator(zap.NewNop())

	tpl := b.Build(unitVector(128), AlgorithmFaceNet, nil)
	tpl.FeatureVector.Data[127] += 0.5

	result := v.Validate(tpl)
	assert.Contains(t, templateIssueCodes(result.Errors), CodeIntegrityMismatch)
}

func TestValidateEmptyDigestVersionUsesLegacyScheme(t *testing.T) {
	v := NewValidator(zap.NewNop())

	vector := unitVector(128)
	tpl := &BiometricTemplate{
		StandardID: StandardID,
		TemplateID: "BT-LEGACY-TEST00001",
		FeatureVector: FeatureVector{
			Data:      vector,
			Dimension: len(vector),
		},
		Encoding:        Encoding{Algorithm: string(AlgorithmFaceNet)},
		IntegrityDigest: digestLegacy(vector),
	}

	result := v.Validate(tpl)
	assert.True(t, result.IsValid)
}

func TestValidateStructuralIssues(t *testing.T) {
	v := NewValidator(zap.NewNop())
	b := NewBuilder(zap.NewNop())

	tests := []struct {
		name      string
		mutate    func(*BiometricTemplate)
		wantCodes []string
		wantLevel ComplianceLevel
	}{
		{
			name:      "wrong standard family",
			mutate:    func(tpl *BiometricTemplate) { tpl.StandardID = "ISO/IEC 29794-1" },
			wantCodes: []string{CodeInvalidStandard},
			wantLevel: ComplianceNonCompliant,
		},
		{
			name: "missing feature vector",
			mutate: func(tpl *BiometricTemplate) {
				tpl.FeatureVector.Data = nil
			},
			wantCodes: []string{CodeMissingFeatureVector},
			wantLevel: ComplianceNonCompliant,
		},
		{
			name:      "missing algorithm",
			mutate:    func(tpl *BiometricTemplate) { tpl.Encoding.Algorithm = "" },
			wantCodes: []string{CodeMissingAlgorithm},
			wantLevel: ComplianceNonCompliant,
		},
		{
			name:      "unknown digest version",
			mutate:    func(tpl *BiometricTemplate) { tpl.DigestVersion = "v9" },
			wantCodes: []string{CodeUnknownDigestVersion},
			wantLevel: ComplianceNonCompliant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := b.Build(unitVector(128), AlgorithmFaceNet, nil)
			tt.mutate(tpl)

			result := v.Validate(tpl)

			assert.Equal(t, tt.wantCodes, templateIssueCodes(result.Errors))
			assert.Equal(t, tt.wantLevel, result.ComplianceLevel)
		})
	}
}

func TestValidateDimensionMismatchIsWarning(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	v := NewValidator(zap.NewNop())

	tpl := b.Build(unitVector(64), AlgorithmFaceNet, nil)
	result := v.Validate(tpl)

	assert.True(t, result.IsValid)
	assert.Equal(t, []string{CodeDimensionMismatch}, templateIssueCodes(result.Warnings))
	assert.Equal(t, CompliancePartial, result.ComplianceLevel)
}

func TestTemplateValidationResultMarshalsEmptyIssueLists(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	v := NewValidator(zap.NewNop())

	payload, err := json.Marshal(v.Validate(b.Build(unitVector(128), AlgorithmFaceNet, nil)))
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"errors":[]`)
	assert.Contains(t, string(payload), `"warnings":[]`)
	assert.NotContains(t, string(payload), `"errors":null`)
	assert.NotContains(t, string(payload), `"warnings":null`)
}

func TestDigestFormats(t *testing.T) {
	vector := unitVector(128)

	v1, err := computeDigest(DigestV1, vector)
	require.NoError(t, err)
	assert.Len(t, v1, 16)

	v2, err := computeDigest(DigestV2, vector)
	require.NoError(t, err)
	assert.Len(t, v2, 32)
	assert.Regexp(t, `^[0-9a-f]{32}$`, v2)

	_, err = computeDigest("v9", vector)
	assert.Error(t, err)
}

func TestDigestShortVector(t *testing.T) {
	// Fewer than ten elements: the legacy digest reads all of them, but its
	// sixteen-character truncation keeps only the first twelve bytes of the
	// joined string ("0.100000,0.2" here).
	vector := []float64{0.1, 0.2, 0.3}

	v1 := digestLegacy(vector)
	assert.NotEmpty(t, v1)

	// A leading-element mutation lands inside the kept prefix.
	assert.NotEqual(t, v1, digestLegacy([]float64{0.2, 0.2, 0.3}))

	// The third element is truncated away entirely, so mutating it leaves
	// the digest unchanged.
	assert.Equal(t, v1, digestLegacy([]float64{0.1, 0.2, 0.4}))
}
