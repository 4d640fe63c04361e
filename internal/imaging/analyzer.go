package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
)

// Luma coefficients (ITU-R BT.601).
const (
	lumaRed   = 0.299
	lumaGreen = 0.587
	lumaBlue  = 0.114
)

// PixelStatistics holds aggregate luminance statistics for a decoded image.
// All values are on the 0-255 scale. Contrast is max minus min brightness.
type PixelStatistics struct {
	MeanBrightness float64 `json:"meanBrightness"`
	MinBrightness  float64 `json:"minBrightness"`
	MaxBrightness  float64 `json:"maxBrightness"`
	Contrast       float64 `json:"contrast"`
}

// Analysis is the full analyzer output: pixel statistics plus the decoded
// image geometry and container format.
type Analysis struct {
	Stats  PixelStatistics `json:"stats"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Format string          `json:"format"`
}

// LoadError indicates the image bytes could not be decoded at all. It is a
// distinct failure path from rule violations: callers must treat it
// separately from "decodable but non-compliant".
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image load failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("image load failed: %s", e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Analyzer decodes raster images and computes per-pixel luminance statistics.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new quality analyzer instance.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger.Named("analyzer")}
}

// Analyze decodes the image and computes brightness and contrast statistics
// in a single pass over every pixel. The context is checked between pixel
// rows so large decodes can be cancelled. Decoding failures are returned as
// *LoadError; cancellation is returned as the context's error.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (*Analysis, error) {
	if len(data) == 0 {
		return nil, &LoadError{Reason: "empty input"}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		a.logger.Debug("Image decode failed", zap.Error(err))
		return nil, &LoadError{Reason: "decode failed", Err: err}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &LoadError{Reason: fmt.Sprintf("invalid dimensions %dx%d", width, height)}
	}

	var (
		sum     float64
		minLuma = 255.0
		maxLuma = 0.0
	)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale down to 0-255.
			luma := lumaRed*float64(r>>8) + lumaGreen*float64(g>>8) + lumaBlue*float64(b>>8)
			sum += luma
			if luma < minLuma {
				minLuma = luma
			}
			if luma > maxLuma {
				maxLuma = luma
			}
		}
	}

	total := float64(width * height)
	stats := PixelStatistics{
		MeanBrightness: sum / total,
		MinBrightness:  minLuma,
		MaxBrightness:  maxLuma,
		Contrast:       maxLuma - minLuma,
	}

	a.logger.Debug("Image analyzed",
		zap.String("format", format),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float64("mean_brightness", stats.MeanBrightness),
		zap.Float64("contrast", stats.Contrast))

	return &Analysis{
		Stats:  stats,
		Width:  width,
		Height: height,
		Format: format,
	}, nil
}
