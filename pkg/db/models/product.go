package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// Product represents the canonical customizable catalog item.
type Product struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU          string                `gorm:"column:sku;not null;uniqueIndex:ux_products_sku"`
	Name         string                `gorm:"column:name;not null"`
	Description  *string               `gorm:"column:description"`
	CategoryID   *uuid.UUID            `gorm:"column:category_id;type:uuid"`
	PriceCents   int                   `gorm:"column:price_cents;not null"`
	Status       enums.ProductStatus   `gorm:"column:status;not null;default:draft"`
	Tags         pq.StringArray        `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	BaseMediaID  *uuid.UUID            `gorm:"column:base_media_id;type:uuid"`
	PrintWidthMM *int                  `gorm:"column:print_width_mm"`
	ImportJobID  *uuid.UUID            `gorm:"column:import_job_id;type:uuid;index"`
	Category     *Category             `gorm:"foreignKey:CategoryID"`
	Constraints  []PlacementConstraint `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
