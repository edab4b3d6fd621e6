package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/enums"
)

// ImportJob is one bulk-import run: a CSV of products plus an optional image
// archive, applied as a set of ImportJobItems.
type ImportJob struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CreatedBy         uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	Status            enums.ImportJobStatus `gorm:"column:status;not null;default:pending"`
	CSVMediaID        uuid.UUID             `gorm:"column:csv_media_id;type:uuid;not null"`
	ArchiveMediaID    *uuid.UUID            `gorm:"column:archive_media_id;type:uuid"`
	RollbackOnFailure bool                  `gorm:"column:rollback_on_failure;not null;default:false"`
	TotalItems        int                   `gorm:"column:total_items;not null;default:0"`
	CompletedItems    int                   `gorm:"column:completed_items;not null;default:0"`
	FailedItems       int                   `gorm:"column:failed_items;not null;default:0"`
	UnmatchedFiles    int                   `gorm:"column:unmatched_files;not null;default:0"`
	Error             *string               `gorm:"column:error"`
	StartedAt         *time.Time            `gorm:"column:started_at"`
	FinishedAt        *time.Time            `gorm:"column:finished_at"`
	Items             []ImportJobItem       `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
