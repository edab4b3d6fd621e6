package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// Media captures metadata for uploaded objects across the platform.
type Media struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	Kind       enums.MediaKind   `gorm:"column:kind;not null"`
	Status     enums.MediaStatus `gorm:"column:status;not null;default:pending"`
	GCSKey     string            `gorm:"column:gcs_key;not null;unique"`
	FileName   string            `gorm:"column:file_name;not null"`
	MimeType   string            `gorm:"column:mime_type;not null"`
	SizeBytes  int64             `gorm:"column:size_bytes;not null"`
	WidthPX    *int              `gorm:"column:width_px"`
	HeightPX   *int              `gorm:"column:height_px"`
	UploadedAt *time.Time        `gorm:"column:uploaded_at"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
