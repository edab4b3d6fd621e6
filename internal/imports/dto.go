package imports

import (
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
)

// CreateImportJobInput captures a bulk import request.
type CreateImportJobInput struct {
	CreatedBy         uuid.UUID
	CSVMediaID        uuid.UUID
	ArchiveMediaID    *uuid.UUID
	RollbackOnFailure *bool
}

// ImportJobDTO is the API representation of an import job.
type ImportJobDTO struct {
	ID                uuid.UUID             `json:"id"`
	Status            enums.ImportJobStatus `json:"status"`
	CSVMediaID        uuid.UUID             `json:"csv_media_id"`
	ArchiveMediaID    *uuid.UUID            `json:"archive_media_id,omitempty"`
	RollbackOnFailure bool                  `json:"rollback_on_failure"`
	TotalItems        int                   `json:"total_items"`
	CompletedItems    int                   `json:"completed_items"`
	FailedItems       int                   `json:"failed_items"`
	UnmatchedFiles    int                   `json:"unmatched_files"`
	Error             *string               `json:"error,omitempty"`
	StartedAt         *time.Time            `json:"started_at,omitempty"`
	FinishedAt        *time.Time            `json:"finished_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// ImportItemDTO is the API representation of one row of import work.
type ImportItemDTO struct {
	ID         uuid.UUID              `json:"id"`
	RowNumber  int                    `json:"row_number"`
	SKU        string                 `json:"sku"`
	Name       string                 `json:"name"`
	Status     enums.ImportItemStatus `json:"status"`
	ImageFiles []string               `json:"image_files"`
	ProductID  *uuid.UUID             `json:"product_id,omitempty"`
	Attempts   int                    `json:"attempts"`
	Error      *string                `json:"error,omitempty"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

func newJobDTO(job *models.ImportJob) *ImportJobDTO {
	if job == nil {
		return nil
	}
	return &ImportJobDTO{
		ID:                job.ID,
		Status:            job.Status,
		CSVMediaID:        job.CSVMediaID,
		ArchiveMediaID:    job.ArchiveMediaID,
		RollbackOnFailure: job.RollbackOnFailure,
		TotalItems:        job.TotalItems,
		CompletedItems:    job.CompletedItems,
		FailedItems:       job.FailedItems,
		UnmatchedFiles:    job.UnmatchedFiles,
		Error:             job.Error,
		StartedAt:         job.StartedAt,
		FinishedAt:        job.FinishedAt,
		CreatedAt:         job.CreatedAt,
	}
}

func newItemDTO(item *models.ImportJobItem) ImportItemDTO {
	return ImportItemDTO{
		ID:         item.ID,
		RowNumber:  item.RowNumber,
		SKU:        item.SKU,
		Name:       item.Name,
		Status:     item.Status,
		ImageFiles: append([]string(nil), item.ImageFiles...),
		ProductID:  item.ProductID,
		Attempts:   item.Attempts,
		Error:      item.Error,
		FinishedAt: item.FinishedAt,
	}
}
