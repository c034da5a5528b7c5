package render

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Scores carries the per-metric quality breakdown.
type Scores struct {
	Readability float64 `json:"readability"`
	Contrast    float64 `json:"contrast"`
	Composition float64 `json:"composition"`
	Overall     float64 `json:"overall"`
}

// QualityResult is the quality-gate verdict for one rendered image.
type QualityResult struct {
	Scores      Scores            `json:"scores"`
	Flags       []string          `json:"flags"`
	FlagReasons map[string]string `json:"flagReasons"`
	Passed      bool              `json:"passed"`
}

// Quality flags.
const (
	FlagLowReadability = "low_readability"
	FlagLowContrast    = "low_contrast"
	FlagLowOverall     = "low_overall_quality"
)

const (
	minReadability = 0.6
	minContrast    = 0.5
	minOverall     = 0.6
)

// CheckQuality scores a rendered image. Pure and deterministic: identical
// pixels and bounds always produce identical output.
func CheckQuality(img image.Image, textBounds image.Rectangle) QualityResult {
	nrgba := imaging.Clone(img)

	scores := Scores{
		Readability: checkReadability(nrgba, textBounds),
		Contrast:    checkContrast(nrgba),
		Composition: checkComposition(nrgba.Bounds(), textBounds),
	}
	scores.Overall = scores.Readability*0.4 + scores.Contrast*0.3 + scores.Composition*0.3

	flags := make([]string, 0, 3)
	reasons := make(map[string]string, 3)

	if scores.Readability < minReadability {
		flags = append(flags, FlagLowReadability)
		reasons[FlagLowReadability] = fmt.Sprintf("readability score %.0f%% is below minimum %.0f%%", scores.Readability*100, minReadability*100)
	}
	if scores.Contrast < minContrast {
		flags = append(flags, FlagLowContrast)
		reasons[FlagLowContrast] = fmt.Sprintf("contrast score %.0f%% is below minimum %.0f%%", scores.Contrast*100, minContrast*100)
	}
	if scores.Overall < minOverall {
		flags = append(flags, FlagLowOverall)
		reasons[FlagLowOverall] = fmt.Sprintf("overall quality %.0f%% is below minimum %.0f%%", scores.Overall*100, minOverall*100)
	}

	return QualityResult{
		Scores:      scores,
		Flags:       flags,
		FlagReasons: reasons,
		Passed:      len(flags) == 0,
	}
}

// checkReadability samples the text area; a uniform background reads better,
// so lower brightness variance scores higher.
func checkReadability(img *image.NRGBA, textBounds image.Rectangle) float64 {
	area := textBounds.Intersect(img.Bounds())
	if area.Empty() {
		return 0.8
	}

	var brightness []float64
	for y := area.Min.Y; y < area.Max.Y; y += 10 {
		for x := area.Min.X; x < area.Max.X; x += 10 {
			idx := img.PixOffset(x, y)
			b := (float64(img.Pix[idx]) + float64(img.Pix[idx+1]) + float64(img.Pix[idx+2])) / 3
			brightness = append(brightness, b)
		}
	}
	if len(brightness) == 0 {
		return 0.8
	}

	var sum float64
	for _, b := range brightness {
		sum += b
	}
	mean := sum / float64(len(brightness))

	var variance float64
	for _, b := range brightness {
		variance += (b - mean) * (b - mean)
	}
	variance /= float64(len(brightness))

	score := math.Max(0.5, 1-variance/2000)
	return math.Min(1, score)
}

// checkContrast samples the whole canvas and scores the brightness spread;
// moderate contrast is ideal, extremes are penalised.
func checkContrast(img *image.NRGBA) float64 {
	minBrightness, maxBrightness := 255.0, 0.0

	for i := 0; i < len(img.Pix); i += 4 * 100 {
		b := (float64(img.Pix[i]) + float64(img.Pix[i+1]) + float64(img.Pix[i+2])) / 3
		minBrightness = math.Min(minBrightness, b)
		maxBrightness = math.Max(maxBrightness, b)
	}

	ratio := (maxBrightness - minBrightness) / 255
	switch {
	case ratio < 0.2:
		return 0.5
	case ratio > 0.8:
		return 0.8
	default:
		return 0.9 + 0.1*(1-math.Abs(ratio-0.5)/0.3)
	}
}

// checkComposition scores text-block centering and margin compliance.
func checkComposition(canvas, textBounds image.Rectangle) float64 {
	width := float64(canvas.Dx())
	height := float64(canvas.Dy())
	if width == 0 || height == 0 {
		return 0.5
	}

	centerX := width / 2
	centerY := height / 2
	textCenterX := float64(textBounds.Min.X) + float64(textBounds.Dx())/2
	textCenterY := float64(textBounds.Min.Y) + float64(textBounds.Dy())/2

	xOffset := math.Abs(textCenterX-centerX) / width
	yOffset := math.Abs(textCenterY-centerY) / height

	minMargin := math.Min(width, height) * 0.05
	adequateMargins := float64(textBounds.Min.X) >= minMargin &&
		float64(textBounds.Min.Y) >= minMargin &&
		float64(textBounds.Max.X) <= width-minMargin &&
		float64(textBounds.Max.Y) <= height-minMargin

	score := 1.0
	score -= xOffset * 0.3
	score -= yOffset * 0.3
	if !adequateMargins {
		score -= 0.2
	}

	return math.Max(0.5, math.Min(1, score))
}
