package compliance

// StandardID identifies the face-image interchange profile the rule table is
// modeled on.
const StandardID = "ISO/IEC 19794-5"

// Severity classifies an issue as blocking or advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue codes. The codes are the external contract; messages are default
// human-readable text the caller may localize.
const (
	CodeInvalidFormat    = "INVALID_FORMAT"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeWidthTooSmall    = "WIDTH_TOO_SMALL"
	CodeHeightTooSmall   = "HEIGHT_TOO_SMALL"
	CodeSuboptimalWidth  = "SUBOPTIMAL_WIDTH"
	CodeSuboptimalHeight = "SUBOPTIMAL_HEIGHT"
	CodePoorLighting     = "POOR_LIGHTING"
	CodeLowContrast      = "LOW_CONTRAST"
	CodeLoadError        = "LOAD_ERROR"
)

// Issue is one rule outcome: a stable code plus a default message.
type Issue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ImageMetadata summarizes the validated image. QualityScore is always
// clamped to [0,100].
type ImageMetadata struct {
	Format       string  `json:"format"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	SizeBytes    int64   `json:"sizeBytes"`
	AspectRatio  float64 `json:"aspectRatio"`
	Brightness   float64 `json:"brightness"`
	Contrast     float64 `json:"contrast"`
	QualityScore int     `json:"qualityScore"`
}

// ValidationResult is the structured outcome of a compliance evaluation.
// IsValid holds exactly when Errors is empty; IsCompliant equals IsValid in
// this design (the fields are kept distinct to allow future divergence,
// e.g. compliant-with-waiver).
type ValidationResult struct {
	IsValid     bool          `json:"isValid"`
	IsCompliant bool          `json:"isCompliant"`
	Errors      []Issue       `json:"errors"`
	Warnings    []Issue       `json:"warnings"`
	Metadata    ImageMetadata `json:"metadata"`
	StandardID  string        `json:"standardId"`
}
