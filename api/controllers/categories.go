package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	category "github.com/printforge/printforge-backend/internal/categories"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type createCategoryRequest struct {
	Name     string `json:"name" validate:"required"`
	Slug     string `json:"slug" validate:"required"`
	Position int    `json:"position" validate:"omitempty,min=0"`
}

type updateCategoryRequest struct {
	Name     *string `json:"name,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Position *int    `json:"position,omitempty" validate:"omitempty,min=0"`
}

// ListCategories returns the ordered category tree.
func ListCategories(svc category.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		list, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// CreateCategory adds a catalog category.
func CreateCategory(svc category.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		var payload createCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateCategory(r.Context(), category.CreateCategoryInput{
			Name:     payload.Name,
			Slug:     payload.Slug,
			Position: payload.Position,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UpdateCategory applies a partial mutation to a category.
func UpdateCategory(svc category.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCategoryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateCategory(r.Context(), categoryID, category.UpdateCategoryInput{
			Name:     payload.Name,
			Slug:     payload.Slug,
			Position: payload.Position,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// DeleteCategory removes a category. Products keep their rows and fall back
// to uncategorized.
func DeleteCategory(svc category.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "category service unavailable"))
			return
		}

		categoryID, err := validators.ParsePathUUID(chi.URLParam(r, "categoryID"), "categoryID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteCategory(r.Context(), categoryID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
