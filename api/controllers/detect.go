package controllers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type mediaDownloader interface {
	Download(ctx context.Context, id uuid.UUID) ([]byte, *models.Media, error)
}

type constraintCreator interface {
	CreateConstraint(ctx context.Context, productID uuid.UUID, input constraint.ConstraintInput) (*constraint.ConstraintDTO, error)
}

type detectRequest struct {
	MediaID     *string `json:"media_id,omitempty"`
	ImageBase64 *string `json:"image_base64,omitempty"`
	ProductID   *string `json:"product_id,omitempty"`
	Persist     bool    `json:"persist,omitempty"`
	Name        string  `json:"name,omitempty"`
}

type detectResponse struct {
	Detection  imaging.Detection         `json:"detection"`
	Constraint *constraint.ConstraintDTO `json:"constraint,omitempty"`
}

// loadImageBytes resolves the raster from either a stored media object or an
// inline base64 payload.
func loadImageBytes(ctx context.Context, media mediaDownloader, mediaID, imageBase64 *string) ([]byte, error) {
	switch {
	case mediaID != nil && strings.TrimSpace(*mediaID) != "":
		id, err := uuid.Parse(strings.TrimSpace(*mediaID))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media_id")
		}
		if media == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable")
		}
		data, _, err := media.Download(ctx, id)
		if err != nil {
			return nil, err
		}
		return data, nil
	case imageBase64 != nil && strings.TrimSpace(*imageBase64) != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*imageBase64))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image_base64")
		}
		return data, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media_id or image_base64 is required")
	}
}

// DetectRegion scans an image for the painted marker zone and optionally
// persists the result as an allowed placement region.
func DetectRegion(detector *imaging.Detector, media mediaDownloader, constraints constraintCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if detector == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "detector unavailable"))
			return
		}

		var payload detectRequest
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

		detection := detector.Detect(img)
		result := detectResponse{Detection: detection}

		if payload.Persist {
			dto, err := persistDetection(r.Context(), constraints, payload, detection)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			result.Constraint = dto
		}

		responses.WriteSuccess(w, result)
	}
}

func persistDetection(ctx context.Context, constraints constraintCreator, payload detectRequest, detection imaging.Detection) (*constraint.ConstraintDTO, error) {
	if !detection.Found {
		return nil, pkgerrors.New(pkgerrors.CodeUnprocessable, "no region detected")
	}
	if payload.ProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required to persist")
	}
	productID, err := uuid.Parse(strings.TrimSpace(*payload.ProductID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product_id")
	}
	if constraints == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable")
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = "detected region"
	}

	return constraints.CreateConstraint(ctx, productID, constraint.ConstraintInput{
		Name: name,
		Mode: enums.ConstraintModeAllowed,
		Rect: constraint.Rect{
			X:      detection.BoundingBox.X,
			Y:      detection.BoundingBox.Y,
			Width:  detection.BoundingBox.Width,
			Height: detection.BoundingBox.Height,
		},
		Detected: true,
	})
}
