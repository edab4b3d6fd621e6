package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
)

type stubMediaDownloader struct {
	data []byte
	err  error
}

func (s *stubMediaDownloader) Download(ctx context.Context, id uuid.UUID) ([]byte, *models.Media, error) {
	return s.data, &models.Media{ID: id}, s.err
}

type stubConstraintCreator struct {
	productID uuid.UUID
	input     constraint.ConstraintInput
	resp      *constraint.ConstraintDTO
}

func (s *stubConstraintCreator) CreateConstraint(ctx context.Context, productID uuid.UUID, input constraint.ConstraintInput) (*constraint.ConstraintDTO, error) {
	s.productID = productID
	s.input = input
	return s.resp, nil
}

// greenBlockPNG draws a white canvas with a green rectangle covering the
// middle quarter of the image.
func greenBlockPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 220, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestDetector() *imaging.Detector {
	return imaging.NewDetector(config.DetectionConfig{MinGreen: 100, Dominance: 40, CoverageFloor: 0.5})
}

func TestDetectRegionFromInlineImage(t *testing.T) {
	handler := DetectRegion(newTestDetector(), nil, nil, nil)

	encoded := base64.StdEncoding.EncodeToString(greenBlockPNG(t, 64, 64))
	body := fmt.Sprintf(`{"image_base64":%q}`, encoded)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var result detectResponse
	decodeEnvelope(t, rec.Body, &result)
	if !result.Detection.Found {
		t.Fatal("expected detection")
	}
	if result.Detection.BoundingBox.X < 0.2 || result.Detection.BoundingBox.X > 0.3 {
		t.Fatalf("unexpected bbox x: %v", result.Detection.BoundingBox.X)
	}
	if result.Constraint != nil {
		t.Fatal("did not ask to persist")
	}
}

func TestDetectRegionFromMedia(t *testing.T) {
	media := &stubMediaDownloader{data: greenBlockPNG(t, 64, 64)}
	handler := DetectRegion(newTestDetector(), media, nil, nil)

	body := fmt.Sprintf(`{"media_id":%q}`, uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDetectRegionPersistsConstraint(t *testing.T) {
	productID := uuid.New()
	creator := &stubConstraintCreator{resp: &constraint.ConstraintDTO{ID: uuid.New(), ProductID: productID}}
	handler := DetectRegion(newTestDetector(), nil, creator, nil)

	encoded := base64.StdEncoding.EncodeToString(greenBlockPNG(t, 64, 64))
	body := fmt.Sprintf(`{"image_base64":%q,"product_id":%q,"persist":true,"name":"front chest"}`, encoded, productID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if creator.productID != productID {
		t.Fatalf("expected product %s got %s", productID, creator.productID)
	}
	if creator.input.Mode != enums.ConstraintModeAllowed {
		t.Fatalf("expected allowed mode got %s", creator.input.Mode)
	}
	if !creator.input.Detected {
		t.Fatal("expected detected flag")
	}
	if creator.input.Name != "front chest" {
		t.Fatalf("unexpected name %q", creator.input.Name)
	}
}

func TestDetectRegionRequiresSource(t *testing.T) {
	handler := DetectRegion(newTestDetector(), nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDetectRegionPersistWithoutMatchFails(t *testing.T) {
	creator := &stubConstraintCreator{}
	handler := DetectRegion(newTestDetector(), nil, creator, nil)

	// all white, nothing to find
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	body := fmt.Sprintf(`{"image_base64":%q,"product_id":%q,"persist":true}`, base64.StdEncoding.EncodeToString(buf.Bytes()), uuid.NewString())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}
