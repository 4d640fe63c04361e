package imaging

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Normalization targets per the face-image interchange profile: portraits
// below 1024x1280 are upscaled toward these dimensions.
const (
	TargetWidth  = 1024
	TargetHeight = 1280

	// Normalized output is always JPEG at this quality.
	OutputQuality = 85
)

// NormalizeResult carries the re-encoded image together with an
// audit-friendly record of the operations applied.
type NormalizeResult struct {
	Data           []byte   `json:"-"`
	Operations     []string `json:"operations"`
	OriginalWidth  int      `json:"originalWidth"`
	OriginalHeight int      `json:"originalHeight"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Format         string   `json:"format"`
}

// Normalizer deterministically rescales images toward the target optimal
// dimensions and re-encodes them as JPEG.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new image normalizer instance.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger.Named("normalizer")}
}

// Normalize upscales the image when either target dimension exceeds the
// current size, using scale = max(targetW/w, targetH/h), then re-encodes as
// JPEG quality 85 regardless of the input format. The result is
// deterministic for identical input bytes.
func (n *Normalizer) Normalize(ctx context.Context, data []byte) (*NormalizeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Reason: "decode failed", Err: err}
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	result := &NormalizeResult{
		OriginalWidth:  origWidth,
		OriginalHeight: origHeight,
		Width:          origWidth,
		Height:         origHeight,
		Format:         "JPEG",
	}

	scale := 1.0
	if origWidth < TargetWidth || origHeight < TargetHeight {
		scale = math.Max(float64(TargetWidth)/float64(origWidth), float64(TargetHeight)/float64(origHeight))
	}

	if scale > 1.0 {
		newWidth := int(math.Round(float64(origWidth) * scale))
		newHeight := int(math.Round(float64(origHeight) * scale))

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img = imaging.Resize(img, newWidth, newHeight, imaging.Lanczos)
		result.Width = newWidth
		result.Height = newHeight
		result.Operations = append(result.Operations,
			fmt.Sprintf("resized %dx%d to %dx%d (scale %.4f, lanczos)", origWidth, origHeight, newWidth, newHeight, scale))
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(OutputQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode normalized image: %w", err)
	}
	result.Data = buf.Bytes()
	result.Operations = append(result.Operations,
		fmt.Sprintf("re-encoded as JPEG quality %d", OutputQuality))

	n.logger.Debug("Image normalized",
		zap.Int("original_width", origWidth),
		zap.Int("original_height", origHeight),
		zap.Int("width", result.Width),
		zap.Int("height", result.Height),
		zap.Int("output_bytes", len(result.Data)))

	return result, nil
}
