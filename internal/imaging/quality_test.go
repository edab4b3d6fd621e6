package imaging

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/enums"
)

func testQualityConfig() config.QualityConfig {
	return config.QualityConfig{
		MinWidthPX:        100,
		MinHeightPX:       100,
		WarnScore:         70,
		FailScore:         40,
		SharpnessFloor:    25,
		BlockinessCeiling: 60,
	}
}

func flatImage(width, height int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func checkerboard(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

func TestValidateSharpImagePasses(t *testing.T) {
	v := NewValidator(testQualityConfig())
	report := v.Validate(checkerboard(128, 128), nil)

	if report.Verdict != enums.QualityVerdictPass {
		t.Fatalf("expected pass, got %s with issues %v", report.Verdict, report.Issues)
	}
	if report.SharpnessScore < 90 {
		t.Fatalf("expected high sharpness for checkerboard, got %f", report.SharpnessScore)
	}
	if report.ColorScore < 90 {
		t.Fatalf("expected balanced color for grayscale image, got %f", report.ColorScore)
	}
}

func TestValidateFlatImageFlagsBlur(t *testing.T) {
	v := NewValidator(testQualityConfig())
	report := v.Validate(flatImage(128, 128, color.RGBA{R: 128, G: 128, B: 128, A: 255}), nil)

	if report.SharpnessScore != 0 {
		t.Fatalf("expected zero sharpness for flat image, got %f", report.SharpnessScore)
	}
	if report.Verdict == enums.QualityVerdictPass {
		t.Fatal("expected blur issue to downgrade verdict")
	}
	if !hasIssueContaining(report.Issues, "blurry") {
		t.Fatalf("expected blur issue, got %v", report.Issues)
	}
}

func TestValidateLowResolution(t *testing.T) {
	v := NewValidator(testQualityConfig())
	report := v.Validate(checkerboard(40, 40), nil)

	if report.ResolutionScore >= 50 {
		t.Fatalf("expected low resolution score, got %f", report.ResolutionScore)
	}
	if !hasIssueContaining(report.Issues, "resolution") {
		t.Fatalf("expected resolution issue, got %v", report.Issues)
	}
}

func TestValidateColorCast(t *testing.T) {
	v := NewValidator(testQualityConfig())
	// heavy green cast
	report := v.Validate(flatImage(128, 128, color.RGBA{R: 10, G: 220, B: 10, A: 255}), nil)

	if report.ColorScore >= 60 {
		t.Fatalf("expected low color score for cast image, got %f", report.ColorScore)
	}
	if !hasIssueContaining(report.Issues, "color cast") {
		t.Fatalf("expected color cast issue, got %v", report.Issues)
	}
}

func TestValidatePlacementScore(t *testing.T) {
	v := NewValidator(testQualityConfig())

	t.Run("lowPlacementAddsIssue", func(t *testing.T) {
		placement := 0.0
		report := v.Validate(checkerboard(128, 128), &placement)
		if report.PlacementScore == nil || *report.PlacementScore != 0 {
			t.Fatalf("expected placement score recorded, got %v", report.PlacementScore)
		}
		if !hasIssueContaining(report.Issues, "placement") {
			t.Fatalf("expected placement issue, got %v", report.Issues)
		}
	})

	t.Run("perfectPlacementKeepsPass", func(t *testing.T) {
		placement := 100.0
		report := v.Validate(checkerboard(128, 128), &placement)
		if report.Verdict != enums.QualityVerdictPass {
			t.Fatalf("expected pass, got %s with issues %v", report.Verdict, report.Issues)
		}
	})
}

func hasIssueContaining(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}
	return false
}
