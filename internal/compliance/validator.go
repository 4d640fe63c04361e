package compliance

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aegisshield/biometric-engine/internal/imaging"
)

// Rule thresholds. These values are the contract, not tunables.
const (
	MaxFileSizeBytes = 10 * 1024 * 1024

	MinWidth  = 480
	MinHeight = 640

	OptimalWidth  = 1024
	OptimalHeight = 1280

	MinBrightness = 30.0
	MaxBrightness = 220.0
	MinContrast   = 40.0

	// Bonus thresholds for the quality score.
	goodBrightnessLow  = 80.0
	goodBrightnessHigh = 180.0
	goodContrast       = 60.0
)

// Score arithmetic: start at 100, subtract per issue, add per bonus, clamp.
const (
	baseScore      = 100
	errorPenalty   = 25
	warningPenalty = 10
	bonusPoints    = 5
)

var acceptedFormats = map[string]struct{}{
	"JPEG":     {},
	"PNG":      {},
	"JPEG2000": {},
}

// ImageInput describes the image under validation as declared by the caller.
// Width and Height come from the decoded image when decoding succeeded.
type ImageInput struct {
	Filename  string
	MIMEType  string
	SizeBytes int64
	Width     int
	Height    int
}

// Validator applies the fixed compliance rule table to analyzer output. It
// never returns an error: every outcome, including a failed decode, is
// reported as a structured result.
type Validator struct {
	logger *zap.Logger
}

// NewValidator creates a new compliance validator instance.
func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{logger: logger.Named("validator")}
}

// Validate evaluates the rule table against the declared input and the pixel
// statistics. A nil stats means the image could not be decoded: a single
// LOAD_ERROR issue is emitted and the pixel- and dimension-level rules are
// skipped, while the declared format and size rules still apply.
func (v *Validator) Validate(input ImageInput, stats *imaging.PixelStatistics) *ValidationResult {
	// Issue lists are part of the wire contract and marshal as [], not null.
	errors := []Issue{}
	warnings := []Issue{}

	format := canonicalFormat(input.MIMEType)
	if _, ok := acceptedFormats[format]; !ok {
		errors = append(errors, Issue{
			Code:     CodeInvalidFormat,
			Message:  fmt.Sprintf("format %s is not accepted; expected JPEG, PNG or JPEG2000", format),
			Severity: SeverityError,
		})
	}

	if input.SizeBytes > MaxFileSizeBytes {
		errors = append(errors, Issue{
			Code:     CodeFileTooLarge,
			Message:  fmt.Sprintf("file size %d bytes exceeds the %d byte limit", input.SizeBytes, MaxFileSizeBytes),
			Severity: SeverityError,
		})
	}

	if stats == nil {
		errors = append(errors, Issue{
			Code:     CodeLoadError,
			Message:  "image could not be decoded",
			Severity: SeverityError,
		})
	} else {
		if input.Width < MinWidth {
			errors = append(errors, Issue{
				Code:     CodeWidthTooSmall,
				Message:  fmt.Sprintf("width %d is below the %d pixel minimum", input.Width, MinWidth),
				Severity: SeverityError,
			})
		}
		if input.Height < MinHeight {
			errors = append(errors, Issue{
				Code:     CodeHeightTooSmall,
				Message:  fmt.Sprintf("height %d is below the %d pixel minimum", input.Height, MinHeight),
				Severity: SeverityError,
			})
		}
		if input.Width < OptimalWidth {
			warnings = append(warnings, Issue{
				Code:     CodeSuboptimalWidth,
				Message:  fmt.Sprintf("width %d is below the %d pixel optimum", input.Width, OptimalWidth),
				Severity: SeverityWarning,
			})
		}
		if input.Height < OptimalHeight {
			warnings = append(warnings, Issue{
				Code:     CodeSuboptimalHeight,
				Message:  fmt.Sprintf("height %d is below the %d pixel optimum", input.Height, OptimalHeight),
				Severity: SeverityWarning,
			})
		}
		if stats.MeanBrightness < MinBrightness || stats.MeanBrightness > MaxBrightness {
			warnings = append(warnings, Issue{
				Code:     CodePoorLighting,
				Message:  fmt.Sprintf("mean brightness %.1f is outside the acceptable range [%.0f, %.0f]", stats.MeanBrightness, MinBrightness, MaxBrightness),
				Severity: SeverityWarning,
			})
		}
		if stats.Contrast < MinContrast {
			warnings = append(warnings, Issue{
				Code:     CodeLowContrast,
				Message:  fmt.Sprintf("contrast %.1f is below the %.0f minimum", stats.Contrast, MinContrast),
				Severity: SeverityWarning,
			})
		}
	}

	score := computeScore(input, stats, len(errors), len(warnings))

	metadata := ImageMetadata{
		Format:       format,
		Width:        input.Width,
		Height:       input.Height,
		SizeBytes:    input.SizeBytes,
		QualityScore: score,
	}
	if input.Height > 0 {
		metadata.AspectRatio = float64(input.Width) / float64(input.Height)
	}
	if stats != nil {
		metadata.Brightness = stats.MeanBrightness
		metadata.Contrast = stats.Contrast
	}

	isValid := len(errors) == 0
	result := &ValidationResult{
		IsValid:     isValid,
		IsCompliant: isValid,
		Errors:      errors,
		Warnings:    warnings,
		Metadata:    metadata,
		StandardID:  StandardID,
	}

	v.logger.Debug("Image validated",
		zap.String("filename", input.Filename),
		zap.Bool("is_valid", isValid),
		zap.Int("errors", len(errors)),
		zap.Int("warnings", len(warnings)),
		zap.Int("quality_score", score))

	return result
}

// computeScore derives the 0-100 quality score. The arithmetic is
// order-independent: penalties depend only on issue counts, bonuses only on
// the measured values.
func computeScore(input ImageInput, stats *imaging.PixelStatistics, errorCount, warningCount int) int {
	score := baseScore
	score -= errorCount * errorPenalty
	score -= warningCount * warningPenalty

	if input.Width >= OptimalWidth {
		score += bonusPoints
	}
	if input.Height >= OptimalHeight {
		score += bonusPoints
	}
	if stats != nil {
		if stats.MeanBrightness >= goodBrightnessLow && stats.MeanBrightness <= goodBrightnessHigh {
			score += bonusPoints
		}
		if stats.Contrast >= goodContrast {
			score += bonusPoints
		}
	}

	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// canonicalFormat maps a declared MIME type to the rule table's format names.
func canonicalFormat(mimeType string) string {
	subtype := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(subtype, "/"); idx >= 0 {
		subtype = subtype[idx+1:]
	}
	switch subtype {
	case "jpeg", "jpg":
		return "JPEG"
	case "png":
		return "PNG"
	case "jp2", "jpx", "jpeg2000":
		return "JPEG2000"
	default:
		return strings.ToUpper(subtype)
	}
}
