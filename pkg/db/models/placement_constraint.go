package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// PlacementConstraint marks where a logo may or may not be placed on a
// product's base image. Coordinates are normalized to the unit square.
type PlacementConstraint struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID            `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string               `gorm:"column:name;not null"`
	Mode      enums.ConstraintMode `gorm:"column:mode;not null"`
	X         float64              `gorm:"column:x;type:numeric(8,6);not null"`
	Y         float64              `gorm:"column:y;type:numeric(8,6);not null"`
	Width     float64              `gorm:"column:width;type:numeric(8,6);not null"`
	Height    float64              `gorm:"column:height;type:numeric(8,6);not null"`
	SnapStep  *float64             `gorm:"column:snap_step;type:numeric(8,6)"`
	ZOrder    int                  `gorm:"column:z_order;not null;default:0"`
	Detected  bool                 `gorm:"column:detected;not null;default:false"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
