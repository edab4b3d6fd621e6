package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/enums"
)

// QualityReport carries the per-heuristic scores (0..100, higher is better),
// the overall verdict, and human-readable issue messages.
type QualityReport struct {
	SharpnessScore  float64             `json:"sharpness_score"`
	ArtifactScore   float64             `json:"artifact_score"`
	ColorScore      float64             `json:"color_score"`
	ResolutionScore float64             `json:"resolution_score"`
	PlacementScore  *float64            `json:"placement_score,omitempty"`
	OverallScore    float64             `json:"overall_score"`
	Verdict         enums.QualityVerdict `json:"verdict"`
	Issues          []string            `json:"issues,omitempty"`
}

// Validator scores uploaded artwork against configured print-quality thresholds.
type Validator struct {
	cfg config.QualityConfig
}

// NewValidator builds a validator from the configured thresholds.
func NewValidator(cfg config.QualityConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs all heuristics over the image. placementScore is supplied by
// the caller when the image is evaluated against a product's constraint set;
// pass nil to skip that component.
func (v *Validator) Validate(img image.Image, placementScore *float64) QualityReport {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := toGray(img)

	report := QualityReport{
		SharpnessScore:  v.scoreSharpness(gray, width, height),
		ArtifactScore:   v.scoreArtifacts(gray, width, height),
		ColorScore:      scoreColorCast(img),
		ResolutionScore: v.scoreResolution(width, height),
	}

	if report.SharpnessScore < v.cfg.SharpnessFloor {
		report.Issues = append(report.Issues, "image appears blurry (low edge detail)")
	}
	if report.ArtifactScore < 100-v.cfg.BlockinessCeiling {
		report.Issues = append(report.Issues, "heavy compression artifacts detected")
	}
	if report.ColorScore < 60 {
		report.Issues = append(report.Issues, "strong color cast detected")
	}
	if width < v.cfg.MinWidthPX || height < v.cfg.MinHeightPX {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"resolution %dx%d below the %dx%d print minimum",
			width, height, v.cfg.MinWidthPX, v.cfg.MinHeightPX,
		))
	}

	scores := []float64{
		report.SharpnessScore,
		report.ArtifactScore,
		report.ColorScore,
		report.ResolutionScore,
	}
	if placementScore != nil {
		clamped := clampScore(*placementScore)
		report.PlacementScore = &clamped
		scores = append(scores, clamped)
		if clamped < 50 {
			report.Issues = append(report.Issues, "logo placement violates the product's constraint regions")
		}
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	report.OverallScore = sum / float64(len(scores))

	switch {
	case report.OverallScore < v.cfg.FailScore:
		report.Verdict = enums.QualityVerdictFail
	case report.OverallScore < v.cfg.WarnScore || len(report.Issues) > 0:
		report.Verdict = enums.QualityVerdictWarn
	default:
		report.Verdict = enums.QualityVerdictPass
	}
	return report
}

// toGray flattens the image into a row-major luma buffer.
func toGray(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	out := make([]float64, width*height)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out[i] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			i++
		}
	}
	return out
}

// scoreSharpness maps Laplacian variance onto 0..100. Crisp photos land well
// above 100 raw variance; flat or blurred images land near zero.
func (v *Validator) scoreSharpness(gray []float64, width, height int) float64 {
	if width < 3 || height < 3 {
		return 0
	}
	var sum, sumSq float64
	n := 0
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			idx := y*width + x
			lap := gray[idx-width] + gray[idx+width] + gray[idx-1] + gray[idx+1] - 4*gray[idx]
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	return clampScore(variance / 4)
}

// scoreArtifacts measures 8x8 block-boundary discontinuity relative to the
// interior gradient, the JPEG blockiness signature. Returns 100 for clean
// images, low scores for heavily quantized ones.
func (v *Validator) scoreArtifacts(gray []float64, width, height int) float64 {
	if width < 17 || height < 17 {
		return 100
	}

	var boundary, interior float64
	var nb, ni int
	for y := 0; y < height; y++ {
		for x := 1; x < width; x++ {
			diff := math.Abs(gray[y*width+x] - gray[y*width+x-1])
			if x%8 == 0 {
				boundary += diff
				nb++
			} else {
				interior += diff
				ni++
			}
		}
	}
	for x := 0; x < width; x++ {
		for y := 1; y < height; y++ {
			diff := math.Abs(gray[y*width+x] - gray[(y-1)*width+x])
			if y%8 == 0 {
				boundary += diff
				nb++
			} else {
				interior += diff
				ni++
			}
		}
	}
	if nb == 0 || ni == 0 {
		return 100
	}

	boundaryMean := boundary / float64(nb)
	interiorMean := interior / float64(ni)
	if interiorMean < 1e-6 {
		if boundaryMean < 1e-6 {
			return 100
		}
		return 0
	}

	// ratio 1.0 means block edges look like everything else
	ratio := boundaryMean / interiorMean
	if ratio <= 1 {
		return 100
	}
	return clampScore(100 - (ratio-1)*100)
}

// scoreColorCast penalizes channel mean imbalance.
func scoreColorCast(img image.Image) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}
	var sumR, sumG, sumB float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sumR += float64(r >> 8)
			sumG += float64(g >> 8)
			sumB += float64(b >> 8)
		}
	}
	meanR := sumR / float64(total)
	meanG := sumG / float64(total)
	meanB := sumB / float64(total)

	maxMean := math.Max(meanR, math.Max(meanG, meanB))
	minMean := math.Min(meanR, math.Min(meanG, meanB))
	spread := maxMean - minMean
	return clampScore(100 - spread/255*200)
}

func (v *Validator) scoreResolution(width, height int) float64 {
	if v.cfg.MinWidthPX <= 0 || v.cfg.MinHeightPX <= 0 {
		return 100
	}
	wRatio := float64(width) / float64(v.cfg.MinWidthPX)
	hRatio := float64(height) / float64(v.cfg.MinHeightPX)
	return clampScore(math.Min(wRatio, hRatio) * 100)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
