package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/db/models"
)

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  *string         `json:"description,omitempty"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	Category     *CategoryRefDTO `json:"category,omitempty"`
	PriceCents   int             `json:"price_cents"`
	Status       string          `json:"status"`
	Tags         []string        `json:"tags"`
	BaseMediaID  *uuid.UUID      `json:"base_media_id,omitempty"`
	PrintWidthMM *int            `json:"print_width_mm,omitempty"`
	ImportJobID  *uuid.UUID      `json:"import_job_id,omitempty"`
	Constraints  []ConstraintRefDTO `json:"constraints,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CategoryRefDTO surfaces limited category data on product responses.
type CategoryRefDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ConstraintRefDTO summarizes a placement constraint attached to a product.
type ConstraintRefDTO struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Mode   string    `json:"mode"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:           product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		Description:  product.Description,
		CategoryID:   product.CategoryID,
		PriceCents:   product.PriceCents,
		Status:       string(product.Status),
		Tags:         append([]string{}, product.Tags...),
		BaseMediaID:  product.BaseMediaID,
		PrintWidthMM: product.PrintWidthMM,
		ImportJobID:  product.ImportJobID,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}

	if product.Category != nil {
		dto.Category = &CategoryRefDTO{
			ID:   product.Category.ID,
			Name: product.Category.Name,
			Slug: product.Category.Slug,
		}
	}

	if len(product.Constraints) > 0 {
		dto.Constraints = make([]ConstraintRefDTO, len(product.Constraints))
		for i, c := range product.Constraints {
			dto.Constraints[i] = ConstraintRefDTO{
				ID:     c.ID,
				Name:   c.Name,
				Mode:   string(c.Mode),
				X:      c.X,
				Y:      c.Y,
				Width:  c.Width,
				Height: c.Height,
			}
		}
	}

	return dto
}
