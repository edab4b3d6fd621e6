package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	"github.com/printforge/printforge-backend/pkg/config"
)

type stubPlacementValidator struct {
	productID uuid.UUID
	candidate constraint.Rect
	resp      *constraint.PlacementReport
}

func (s *stubPlacementValidator) ValidatePlacement(ctx context.Context, productID uuid.UUID, candidate constraint.Rect) (*constraint.PlacementReport, error) {
	s.productID = productID
	s.candidate = candidate
	return s.resp, nil
}

func newTestQualityValidator() *imaging.Validator {
	return imaging.NewValidator(config.QualityConfig{
		MinWidthPX:        8,
		MinHeightPX:       8,
		WarnScore:         70,
		FailScore:         40,
		SharpnessFloor:    25,
		BlockinessCeiling: 60,
	})
}

func TestValidateQualityInlineImage(t *testing.T) {
	handler := ValidateQuality(newTestQualityValidator(), nil, nil, nil)

	encoded := base64.StdEncoding.EncodeToString(greenBlockPNG(t, 64, 64))
	body := fmt.Sprintf(`{"image_base64":%q}`, encoded)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quality", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var result qualityResponse
	decodeEnvelope(t, rec.Body, &result)
	if result.Report.Verdict == "" {
		t.Fatal("expected verdict")
	}
	if result.Report.PlacementScore != nil {
		t.Fatal("no placement requested")
	}
	if result.Placement != nil {
		t.Fatal("no placement requested")
	}
}

func TestValidateQualityWithPlacement(t *testing.T) {
	productID := uuid.New()
	containing := uuid.New()
	validator := &stubPlacementValidator{resp: &constraint.PlacementReport{Valid: true, ContainedBy: &containing}}
	handler := ValidateQuality(newTestQualityValidator(), nil, validator, nil)

	encoded := base64.StdEncoding.EncodeToString(greenBlockPNG(t, 64, 64))
	body := fmt.Sprintf(`{"image_base64":%q,"product_id":%q,"placement":{"x":0.3,"y":0.3,"width":0.2,"height":0.2}}`, encoded, productID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quality", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if validator.productID != productID {
		t.Fatalf("expected product %s got %s", productID, validator.productID)
	}
	if validator.candidate.Width != 0.2 {
		t.Fatalf("unexpected candidate rect: %+v", validator.candidate)
	}

	var result qualityResponse
	decodeEnvelope(t, rec.Body, &result)
	if result.Report.PlacementScore == nil || *result.Report.PlacementScore != 100 {
		t.Fatalf("expected placement score 100, got %v", result.Report.PlacementScore)
	}
	if result.Placement == nil || !result.Placement.Valid {
		t.Fatal("expected placement report")
	}
}

func TestValidateQualityRejectsUndecodable(t *testing.T) {
	handler := ValidateQuality(newTestQualityValidator(), nil, nil, nil)

	body := fmt.Sprintf(`{"image_base64":%q}`, base64.StdEncoding.EncodeToString([]byte("not an image")))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quality", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}
