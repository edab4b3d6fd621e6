package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type rectRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" validate:"required,gt=0"`
	Height float64 `json:"height" validate:"required,gt=0"`
}

func (r rectRequest) toRect() constraint.Rect {
	return constraint.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

type createConstraintRequest struct {
	Name     string      `json:"name" validate:"required"`
	Mode     string      `json:"mode" validate:"required"`
	Rect     rectRequest `json:"rect" validate:"required"`
	SnapStep *float64    `json:"snap_step,omitempty" validate:"omitempty,gt=0"`
	ZOrder   int         `json:"z_order"`
}

type updateConstraintRequest struct {
	Name     *string      `json:"name,omitempty"`
	Mode     *string      `json:"mode,omitempty"`
	Rect     *rectRequest `json:"rect,omitempty"`
	SnapStep *float64     `json:"snap_step,omitempty" validate:"omitempty,gt=0"`
	ZOrder   *int         `json:"z_order,omitempty"`
}

type validatePlacementRequest struct {
	Rect rectRequest `json:"rect" validate:"required"`
}

// ListConstraints returns the constraint regions for one product.
func ListConstraints(svc constraint.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListConstraints(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// CreateConstraint adds a placement region to a product.
func CreateConstraint(svc constraint.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createConstraintRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		mode, err := enums.ParseConstraintMode(strings.TrimSpace(payload.Mode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
			return
		}

		dto, err := svc.CreateConstraint(r.Context(), productID, constraint.ConstraintInput{
			Name:     payload.Name,
			Mode:     mode,
			Rect:     payload.Rect.toRect(),
			SnapStep: payload.SnapStep,
			ZOrder:   payload.ZOrder,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UpdateConstraint applies a partial mutation to a constraint region.
func UpdateConstraint(svc constraint.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable"))
			return
		}

		constraintID, err := validators.ParsePathUUID(chi.URLParam(r, "constraintID"), "constraintID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateConstraintRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := constraint.UpdateConstraintInput{
			Name:     payload.Name,
			SnapStep: payload.SnapStep,
			ZOrder:   payload.ZOrder,
		}
		if payload.Mode != nil {
			mode, err := enums.ParseConstraintMode(strings.TrimSpace(*payload.Mode))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
				return
			}
			input.Mode = &mode
		}
		if payload.Rect != nil {
			rect := payload.Rect.toRect()
			input.Rect = &rect
		}

		dto, err := svc.UpdateConstraint(r.Context(), constraintID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// DeleteConstraint removes a constraint region.
func DeleteConstraint(svc constraint.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable"))
			return
		}

		constraintID, err := validators.ParsePathUUID(chi.URLParam(r, "constraintID"), "constraintID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteConstraint(r.Context(), constraintID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ValidatePlacement checks a candidate logo rect against a product's regions.
func ValidatePlacement(svc constraint.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "constraint service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload validatePlacementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.ValidatePlacement(r.Context(), productID, payload.Rect.toRect())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
