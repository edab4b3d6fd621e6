package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/printforge/printforge-backend/pkg/config"
)

func testDetector() *Detector {
	return NewDetector(config.DetectionConfig{
		MinGreen:      100,
		Dominance:     40,
		CoverageFloor: 0.5,
	})
}

func greenBlockImage(width, height int, block image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	green := color.RGBA{R: 30, G: 200, B: 40, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if image.Pt(x, y).In(block) {
				img.Set(x, y, green)
			} else {
				img.Set(x, y, white)
			}
		}
	}
	return img
}

func TestDetectFindsGreenBlock(t *testing.T) {
	img := greenBlockImage(100, 100, image.Rect(20, 30, 60, 70))
	det := testDetector().Detect(img)

	if !det.Found {
		t.Fatalf("expected detection, coverage %f", det.CoveragePercent)
	}
	if det.PixelCount != 40*40 {
		t.Fatalf("expected 1600 matched pixels, got %d", det.PixelCount)
	}

	approx := func(got, want float64) bool { return math.Abs(got-want) < 0.011 }
	bb := det.BoundingBox
	if !approx(bb.X, 0.20) || !approx(bb.Y, 0.30) || !approx(bb.Width, 0.40) || !approx(bb.Height, 0.40) {
		t.Fatalf("unexpected bounding box %+v", bb)
	}
	// centroid sits at the block center
	if !approx(det.CentroidX, 0.395) || !approx(det.CentroidY, 0.495) {
		t.Fatalf("unexpected centroid (%f, %f)", det.CentroidX, det.CentroidY)
	}
	if !approx(det.CoveragePercent, 16.0) {
		t.Fatalf("expected 16%% coverage, got %f", det.CoveragePercent)
	}
}

func TestDetectIgnoresNonDominantGreen(t *testing.T) {
	// gray pixels have high G but no dominance over R/B
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	gray := color.RGBA{R: 180, G: 180, B: 180, A: 255}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, gray)
		}
	}
	det := testDetector().Detect(img)
	if det.Found || det.PixelCount != 0 {
		t.Fatalf("expected no detection on gray image, got %+v", det)
	}
}

func TestDetectBelowCoverageFloor(t *testing.T) {
	// 2x2 green block on 100x100 = 0.04% coverage, below the 0.5% floor
	img := greenBlockImage(100, 100, image.Rect(0, 0, 2, 2))
	det := testDetector().Detect(img)
	if det.Found {
		t.Fatalf("expected coverage floor to suppress detection, got %+v", det)
	}
	if det.PixelCount != 4 {
		t.Fatalf("expected raw pixel count to be reported, got %d", det.PixelCount)
	}
}

func TestDetectEmptyImage(t *testing.T) {
	det := testDetector().Detect(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	if det.Found || det.PixelCount != 0 {
		t.Fatalf("expected zero result for empty image, got %+v", det)
	}
}
