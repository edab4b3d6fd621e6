package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// ImportJobItem is one unit of import work: create one product and attach the
// archive images matched to its SKU.
type ImportJobItem struct {
	ID           uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID        uuid.UUID              `gorm:"column:job_id;type:uuid;not null;index"`
	RowNumber    int                    `gorm:"column:row_number;not null"`
	SKU          string                 `gorm:"column:sku;not null"`
	Name         string                 `gorm:"column:name;not null"`
	CategorySlug string                 `gorm:"column:category_slug;not null"`
	PriceCents   int                    `gorm:"column:price_cents;not null"`
	Status       enums.ImportItemStatus `gorm:"column:status;not null;default:pending"`
	ProductState enums.ProductStatus    `gorm:"column:product_state;not null;default:draft"`
	Description  *string                `gorm:"column:description"`
	Tags         pq.StringArray         `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	ImageFiles   pq.StringArray         `gorm:"column:image_files;type:text[];not null;default:ARRAY[]::text[]"`
	ProductID    *uuid.UUID             `gorm:"column:product_id;type:uuid"`
	Attempts     int                    `gorm:"column:attempts;not null;default:0"`
	Error        *string                `gorm:"column:error"`
	StartedAt    *time.Time             `gorm:"column:started_at"`
	FinishedAt   *time.Time             `gorm:"column:finished_at"`
	CreatedAt    time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
