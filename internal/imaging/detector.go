package imaging

import (
	"image"

	"github.com/printforge/printforge-backend/pkg/config"
)

// Detection is the result of a green-region scan. Bounding box and centroid
// are normalized to the unit square so they can be stored directly as
// placement constraint coordinates.
type Detection struct {
	Found           bool    `json:"found"`
	PixelCount      int     `json:"pixel_count"`
	CoveragePercent float64 `json:"coverage_percent"`
	BoundingBox     NormRect `json:"bounding_box"`
	CentroidX       float64 `json:"centroid_x"`
	CentroidY       float64 `json:"centroid_y"`
}

// NormRect is a normalized rectangle matching the constraint editor layout.
type NormRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detector scans images for the green marker zones editors paint onto base
// product photos.
type Detector struct {
	minGreen      uint32
	dominance     int64
	coverageFloor float64
}

// NewDetector builds a detector from the configured thresholds.
func NewDetector(cfg config.DetectionConfig) *Detector {
	return &Detector{
		minGreen:      uint32(cfg.MinGreen),
		dominance:     int64(cfg.Dominance),
		coverageFloor: cfg.CoverageFloor,
	}
}

// Detect runs a single linear pass over the pixels. A pixel matches when its
// green channel is at least minGreen and exceeds both red and blue by the
// dominance margin. Coverage below the floor yields Found=false.
func (d *Detector) Detect(img image.Image) Detection {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return Detection{}
	}

	var (
		count                  int
		sumX, sumY             int64
		minX, minY, maxX, maxY int
	)
	minX, minY = bounds.Max.X, bounds.Max.Y
	maxX, maxY = bounds.Min.X - 1, bounds.Min.Y - 1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// RGBA returns 16-bit channels; scale to 8-bit space.
			r8 := int64(r >> 8)
			g8 := int64(g >> 8)
			b8 := int64(b >> 8)

			if uint32(g8) < d.minGreen {
				continue
			}
			maxRB := r8
			if b8 > maxRB {
				maxRB = b8
			}
			if g8-maxRB < d.dominance {
				continue
			}

			count++
			sumX += int64(x - bounds.Min.X)
			sumY += int64(y - bounds.Min.Y)
			if x < minX {
				minX = x
			}
			if y < minY {
				minY = y
			}
			if x > maxX {
				maxX = x
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	total := width * height
	coverage := float64(count) / float64(total) * 100

	det := Detection{
		PixelCount:      count,
		CoveragePercent: coverage,
	}
	if count == 0 || coverage < d.coverageFloor {
		return det
	}

	fw := float64(width)
	fh := float64(height)
	det.Found = true
	det.BoundingBox = NormRect{
		X:      float64(minX-bounds.Min.X) / fw,
		Y:      float64(minY-bounds.Min.Y) / fh,
		Width:  float64(maxX-minX+1) / fw,
		Height: float64(maxY-minY+1) / fh,
	}
	det.CentroidX = float64(sumX) / float64(count) / fw
	det.CentroidY = float64(sumY) / float64(count) / fh
	return det
}
