package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/api/responses"
	"github.com/printforge/printforge-backend/api/validators"
	product "github.com/printforge/printforge-backend/internal/products"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/pagination"
)

type createProductRequest struct {
	SKU          string   `json:"sku" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Description  *string  `json:"description,omitempty"`
	CategoryID   *string  `json:"category_id,omitempty"`
	PriceCents   int      `json:"price_cents" validate:"required,min=0"`
	Status       *string  `json:"status,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	BaseMediaID  *string  `json:"base_media_id,omitempty"`
	PrintWidthMM *int     `json:"print_width_mm,omitempty" validate:"omitempty,min=1"`
}

func (req createProductRequest) toCreateInput() (product.CreateProductInput, error) {
	status := enums.ProductStatusDraft
	if req.Status != nil {
		parsed, err := enums.ParseProductStatus(strings.TrimSpace(*req.Status))
		if err != nil {
			return product.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = parsed
	}

	categoryID, err := parseOptionalUUID(req.CategoryID, "category_id")
	if err != nil {
		return product.CreateProductInput{}, err
	}
	baseMediaID, err := parseOptionalUUID(req.BaseMediaID, "base_media_id")
	if err != nil {
		return product.CreateProductInput{}, err
	}

	return product.CreateProductInput{
		SKU:          req.SKU,
		Name:         req.Name,
		Description:  req.Description,
		CategoryID:   categoryID,
		PriceCents:   req.PriceCents,
		Status:       status,
		Tags:         req.Tags,
		BaseMediaID:  baseMediaID,
		PrintWidthMM: req.PrintWidthMM,
	}, nil
}

type updateProductRequest struct {
	SKU           *string   `json:"sku,omitempty"`
	Name          *string   `json:"name,omitempty"`
	Description   *string   `json:"description,omitempty"`
	CategoryID    *string   `json:"category_id,omitempty"`
	ClearCategory bool      `json:"clear_category,omitempty"`
	PriceCents    *int      `json:"price_cents,omitempty" validate:"omitempty,min=0"`
	Status        *string   `json:"status,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	BaseMediaID   *string   `json:"base_media_id,omitempty"`
	PrintWidthMM  *int      `json:"print_width_mm,omitempty" validate:"omitempty,min=1"`
}

func (req updateProductRequest) toUpdateInput() (product.UpdateProductInput, error) {
	var status *enums.ProductStatus
	if req.Status != nil {
		parsed, err := enums.ParseProductStatus(strings.TrimSpace(*req.Status))
		if err != nil {
			return product.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = &parsed
	}

	categoryID, err := parseOptionalUUID(req.CategoryID, "category_id")
	if err != nil {
		return product.UpdateProductInput{}, err
	}
	baseMediaID, err := parseOptionalUUID(req.BaseMediaID, "base_media_id")
	if err != nil {
		return product.UpdateProductInput{}, err
	}

	return product.UpdateProductInput{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    categoryID,
		ClearCategory: req.ClearCategory,
		PriceCents:    req.PriceCents,
		Status:        status,
		Tags:          req.Tags,
		BaseMediaID:   baseMediaID,
		PrintWidthMM:  req.PrintWidthMM,
	}, nil
}

func parseOptionalUUID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return &id, nil
}

// CreateProduct handles authenticated product creation.
func CreateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// UpdateProduct applies a partial mutation to a product.
func UpdateProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// DeleteProduct removes a product and its constraint regions.
func DeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GetProduct returns one product with its category and constraints.
func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ListProducts paginates the catalog. publicOnly narrows results to active
// products for the unauthenticated storefront surface.
func ListProducts(svc product.Service, logg *logger.Logger, publicOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		input, err := parseListProductsInput(r, publicOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func parseListProductsInput(r *http.Request, publicOnly bool) (product.ListProductsInput, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return product.ListProductsInput{}, err
	}

	categoryID, err := validators.ParseQueryUUID(r, "category_id")
	if err != nil {
		return product.ListProductsInput{}, err
	}

	var status *enums.ProductStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, err := enums.ParseProductStatus(raw)
		if err != nil {
			return product.ListProductsInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		status = &parsed
	}

	priceMin, err := parseOptionalQueryInt(r, "price_min_cents")
	if err != nil {
		return product.ListProductsInput{}, err
	}
	priceMax, err := parseOptionalQueryInt(r, "price_max_cents")
	if err != nil {
		return product.ListProductsInput{}, err
	}

	return product.ListProductsInput{
		Filters: product.ProductListFilters{
			CategoryID:    categoryID,
			Status:        status,
			PriceMinCents: priceMin,
			PriceMaxCents: priceMax,
			Tag:           strings.TrimSpace(r.URL.Query().Get("tag")),
			Query:         strings.TrimSpace(r.URL.Query().Get("q")),
		},
		Pagination: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
		PublicOnly: publicOnly,
	}, nil
}

func parseOptionalQueryInt(r *http.Request, key string) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(key)) == "" {
		return nil, nil
	}
	value, err := validators.ParseQueryInt(r, key, 0, 0, int(^uint(0)>>1))
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// ExportProducts streams the catalog as a CSV attachment.
func ExportProducts(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		data, err := svc.ExportCatalogCSV(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fileName := "catalog-" + time.Now().UTC().Format("20060102-150405") + ".csv"
		responses.WriteCSV(w, fileName, data)
	}
}
