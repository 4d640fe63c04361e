package template

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/compliance"
)

// Validator structurally re-checks stored template records and re-derives
// their integrity digest. Like the image validator, it never returns an
// error: every outcome is a structured result.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a template validator instance.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("template_validator")}
}

// Validate re-checks the template's structure and recomputes its integrity
// digest under the scheme the record declares. A digest mismatch is fatal:
// it signals tampering or corruption and the caller must treat the template
// as untrustworthy. Dimension mismatches against the algorithm's expected
// size are warnings only.
func (v *Validator) Validate(tpl *BiometricTemplate) *TemplateValidationResult {
	// Issue lists are part of the wire contract and marshal as [], not null.
	errors := []compliance.Issue{}
	warnings := []compliance.Issue{}

	if !strings.Contains(tpl.StandardID, standardFamily) {
		errors = append(errors, compliance.Issue{
			Code:     CodeInvalidStandard,
			Message:  fmt.Sprintf("standard tag %q is not in the %s family", tpl.StandardID, standardFamily),
			Severity: compliance.SeverityError,
		})
	}

	if len(tpl.FeatureVector.Data) == 0 {
		errors = append(errors, compliance.Issue{
			Code:     CodeMissingFeatureVector,
			Message:  "feature vector data is missing or empty",
			Severity: compliance.SeverityError,
		})
	}

	if tpl.Encoding.Algorithm == "" {
		errors = append(errors, compliance.Issue{
			Code:     CodeMissingAlgorithm,
			Message:  "encoding algorithm is not set",
			Severity: compliance.SeverityError,
		})
	} else if expected, ok := Algorithm(tpl.Encoding.Algorithm).ExpectedDimension(); ok && len(tpl.FeatureVector.Data) != expected {
		warnings = append(warnings, compliance.Issue{
			Code:     CodeDimensionMismatch,
			Message:  fmt.Sprintf("vector length %d does not match the %d expected for %s", len(tpl.FeatureVector.Data), expected, tpl.Encoding.Algorithm),
			Severity: compliance.SeverityWarning,
		})
	}

	if len(tpl.FeatureVector.Data) > 0 {
		version := tpl.DigestVersion
		if version == "" {
			// Records written before the digest scheme was versioned carry
			// the legacy digest.
			version = DigestV1
		}
		recomputed, err := computeDigest(version, tpl.FeatureVector.Data)
		if err != nil {
			errors = append(errors, compliance.Issue{
				Code:     CodeUnknownDigestVersion,
				Message:  fmt.Sprintf("digest version %q is not recognized", tpl.DigestVersion),
				Severity: compliance.SeverityError,
			})
		} else if recomputed != tpl.IntegrityDigest {
			errors = append(errors, compliance.Issue{
				Code:     CodeIntegrityMismatch,
				Message:  "integrity digest does not match the stored feature vector",
				Severity: compliance.SeverityError,
			})
			v.logger.Warn("Template integrity mismatch",
				zap.String("template_id", tpl.TemplateID),
				zap.String("digest_version", version))
		}
	}

	result := &TemplateValidationResult{
		IsValid:         len(errors) == 0,
		Errors:          errors,
		Warnings:        warnings,
		ComplianceLevel: complianceLevel(len(errors), len(warnings)),
	}

	v.logger.Debug("Template validated",
		zap.String("template_id", tpl.TemplateID),
		zap.Bool("is_valid", result.IsValid),
		zap.String("compliance_level", string(result.ComplianceLevel)))

	return result
}

func complianceLevel(errorCount, warningCount int) ComplianceLevel {
	switch {
	case errorCount > 0:
		return ComplianceNonCompliant
	case warningCount > 0:
		return CompliancePartial
	default:
		return ComplianceFull
	}
}
