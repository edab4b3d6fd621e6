package imports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
)

// Repository exposes import job persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an imports repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateJob persists a job together with its items.
func (r *Repository) CreateJob(ctx context.Context, job *models.ImportJob) (*models.ImportJob, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// FindJob loads a job without its items.
func (r *Repository) FindJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindJobWithItems loads a job and its items ordered by row number.
func (r *Repository) FindJobWithItems(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	var job models.ImportJob
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("row_number ASC")
		}).
		First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs newest-first.
func (r *Repository) ListJobs(ctx context.Context, limit int) ([]models.ImportJob, error) {
	var jobs []models.ImportJob
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// MarkJobProcessing transitions a pending job to processing. Returns the
// number of rows changed so concurrent runners cannot double-start a job.
func (r *Repository) MarkJobProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", id, enums.ImportJobStatusPending).
		Updates(map[string]any{
			"status":     enums.ImportJobStatusProcessing,
			"started_at": startedAt,
		})
	return res.RowsAffected, res.Error
}

// FinishJob records final counters and status for a run.
func (r *Repository) FinishJob(ctx context.Context, id uuid.UUID, status enums.ImportJobStatus, completed, failed, unmatched int, jobErr *string, finishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          status,
			"completed_items": completed,
			"failed_items":    failed,
			"unmatched_files": unmatched,
			"error":           jobErr,
			"finished_at":     finishedAt,
		}).Error
}

// SetJobStatus overwrites the job status.
func (r *Repository) SetJobStatus(ctx context.Context, id uuid.UUID, status enums.ImportJobStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ListItems returns the items of a job ordered by row number.
func (r *Repository) ListItems(ctx context.Context, jobID uuid.UUID) ([]models.ImportJobItem, error) {
	var items []models.ImportJobItem
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("row_number ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// SetItemImageFiles stores the archive file names matched to an item.
func (r *Repository) SetItemImageFiles(ctx context.Context, itemID uuid.UUID, files []string) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJobItem{}).
		Where("id = ?", itemID).
		Update("image_files", pq.StringArray(files)).Error
}

// ClaimItem marks an item processing and bumps its attempt counter.
func (r *Repository) ClaimItem(ctx context.Context, itemID uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJobItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"status":     enums.ImportItemStatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": startedAt,
		}).Error
}

// MarkItemCompleted records the created product on a finished item.
func (r *Repository) MarkItemCompleted(ctx context.Context, itemID, productID uuid.UUID, finishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJobItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"status":      enums.ImportItemStatusCompleted,
			"product_id":  productID,
			"error":       nil,
			"finished_at": finishedAt,
		}).Error
}

// MarkItemFailed records the failure reason on an item.
func (r *Repository) MarkItemFailed(ctx context.Context, itemID uuid.UUID, message string, finishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.ImportJobItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{
			"status":      enums.ImportItemStatusFailed,
			"error":       message,
			"finished_at": finishedAt,
		}).Error
}
