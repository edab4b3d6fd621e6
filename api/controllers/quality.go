package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type placementValidator interface {
	ValidatePlacement(ctx context.Context, productID uuid.UUID, candidate constraint.Rect) (*constraint.PlacementReport, error)
}

type qualityRequest struct {
	MediaID     *string      `json:"media_id,omitempty"`
	ImageBase64 *string      `json:"image_base64,omitempty"`
	ProductID   *string      `json:"product_id,omitempty"`
	Placement   *rectRequest `json:"placement,omitempty"`
}

type qualityResponse struct {
	Report    imaging.QualityReport       `json:"report"`
	Placement *constraint.PlacementReport `json:"placement,omitempty"`
}

// ValidateQuality scores an uploaded artwork. When a product and candidate
// placement are supplied the placement outcome feeds the overall score.
func ValidateQuality(validator *imaging.Validator, media mediaDownloader, constraints placementValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if validator == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "validator unavailable"))
			return
		}

		var payload qualityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		data, err := loadImageBytes(r.Context(), media, payload.MediaID, payload.ImageBase64)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		img, err := imaging.Decode(data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var placementScore *float64
		var placementReport *constraint.PlacementReport
		if payload.ProductID != nil && payload.Placement != nil {
			if constraints == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable"))
				return
			}
			productID, err := uuid.Parse(strings.TrimSpace(*payload.ProductID))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product_id"))
				return
			}
			placementReport, err = constraints.ValidatePlacement(r.Context(), productID, payload.Placement.toRect())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			score := 0.0
			if placementReport.Valid {
				score = 100.0
			}
			placementScore = &score
		}

		report := validator.Validate(img, placementScore)
		responses.WriteSuccess(w, qualityResponse{Report: report, Placement: placementReport})
	}
}
