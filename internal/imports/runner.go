package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
)

type jobStore interface {
	FindJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error)
	ListItems(ctx context.Context, jobID uuid.UUID) ([]models.ImportJobItem, error)
	MarkJobProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (int64, error)
	FinishJob(ctx context.Context, id uuid.UUID, status enums.ImportJobStatus, completed, failed, unmatched int, jobErr *string, finishedAt time.Time) error
	SetItemImageFiles(ctx context.Context, itemID uuid.UUID, files []string) error
	ClaimItem(ctx context.Context, itemID uuid.UUID, startedAt time.Time) error
	MarkItemCompleted(ctx context.Context, itemID, productID uuid.UUID, finishedAt time.Time) error
	MarkItemFailed(ctx context.Context, itemID uuid.UUID, message string, finishedAt time.Time) error
}

type productStore interface {
	CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	DeleteProductsByImportJob(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type categoryResolver interface {
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
}

type mediaStore interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

type objectStore interface {
	DownloadObject(ctx context.Context, bucket, object string) ([]byte, error)
	UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// RunnerParams bundle the dependencies of the batch runner.
type RunnerParams struct {
	Logger     *logger.Logger
	Repo       jobStore
	Products   productStore
	Categories categoryResolver
	Media      mediaStore
	Objects    objectStore
	Bucket     string
	Config     config.ImportsConfig
	Metrics    *metrics.ImportMetrics
}

// Runner executes import jobs: archive matching, bounded-concurrency item
// processing with retries, and final status aggregation.
type Runner struct {
	logg       *logger.Logger
	repo       jobStore
	products   productStore
	categories categoryResolver
	media      mediaStore
	objects    objectStore
	bucket     string
	cfg        config.ImportsConfig
	metrics    *metrics.ImportMetrics
	now        func() time.Time
}

// NewRunner validates dependencies and builds a runner.
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("import repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Categories == nil {
		return nil, fmt.Errorf("category resolver required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media store required")
	}
	if params.Objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg := params.Config
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 250 * time.Millisecond
	}
	return &Runner{
		logg:       params.Logger,
		repo:       params.Repo,
		products:   params.Products,
		categories: params.Categories,
		media:      params.Media,
		objects:    params.Objects,
		bucket:     params.Bucket,
		cfg:        cfg,
		metrics:    params.Metrics,
		now:        time.Now,
	}, nil
}

// Run processes one job to completion. Returns nil when the job reached a
// terminal state, even if individual items failed.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID, trigger string) error {
	start := r.now()
	ctx = r.logg.WithJobID(ctx, jobID.String())

	job, err := r.repo.FindJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logg.Warn(ctx, "import job not found")
			return nil
		}
		return fmt.Errorf("load import job: %w", err)
	}

	claimed, err := r.repo.MarkJobProcessing(ctx, jobID, start.UTC())
	if err != nil {
		return fmt.Errorf("claim import job: %w", err)
	}
	if claimed == 0 {
		r.logg.Info(ctx, "import job already claimed, skipping")
		return nil
	}

	items, err := r.repo.ListItems(ctx, jobID)
	if err != nil {
		return r.failJob(ctx, job, trigger, start, fmt.Errorf("load import items: %w", err))
	}

	archive, unmatched, err := r.prepareArchive(ctx, job, items)
	if err != nil {
		return r.failJob(ctx, job, trigger, start, err)
	}

	completed, failed, itemErrs := r.processItems(ctx, job, items, archive)

	status := enums.ImportJobStatusCompleted
	var jobErrMsg *string
	if failed > 0 {
		status = enums.ImportJobStatusFailed
		msg := fmt.Sprintf("%d of %d items failed", failed, len(items))
		jobErrMsg = &msg

		if job.RollbackOnFailure {
			removed, rbErr := r.products.DeleteProductsByImportJob(ctx, jobID)
			if rbErr != nil {
				itemErrs = multierr.Append(itemErrs, fmt.Errorf("rollback products: %w", rbErr))
			} else {
				status = enums.ImportJobStatusRolledBack
				msg := fmt.Sprintf("%d of %d items failed, %d products rolled back", failed, len(items), removed)
				jobErrMsg = &msg
			}
		}
	}

	if err := r.repo.FinishJob(ctx, jobID, status, completed, failed, unmatched, jobErrMsg, r.now().UTC()); err != nil {
		return multierr.Append(itemErrs, fmt.Errorf("finish import job: %w", err))
	}

	if r.metrics != nil {
		r.metrics.ObserveJobDuration(trigger, r.now().Sub(start))
		if status == enums.ImportJobStatusCompleted {
			r.metrics.IncJobSuccess(trigger)
		} else {
			r.metrics.IncJobFailure(trigger)
		}
	}

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"status":          string(status),
		"completed_items": completed,
		"failed_items":    failed,
		"unmatched_files": unmatched,
	})
	r.logg.Info(logCtx, "import job finished")
	return itemErrs
}

// prepareArchive downloads the job archive, extracts its images, and records
// per-item file matches. Jobs without an archive run CSV-only.
func (r *Runner) prepareArchive(ctx context.Context, job *models.ImportJob, items []models.ImportJobItem) (*Archive, int, error) {
	if job.ArchiveMediaID == nil {
		return nil, 0, nil
	}

	archiveMedia, err := r.media.FindByID(ctx, *job.ArchiveMediaID)
	if err != nil {
		return nil, 0, fmt.Errorf("load archive media: %w", err)
	}
	data, err := r.objects.DownloadObject(ctx, r.bucket, archiveMedia.GCSKey)
	if err != nil {
		return nil, 0, fmt.Errorf("download archive: %w", err)
	}
	archive, err := ExtractArchive(data)
	if err != nil {
		return nil, 0, fmt.Errorf("extract archive: %w", err)
	}

	skus := make([]string, len(items))
	for i := range items {
		skus[i] = items[i].SKU
	}
	matches, unmatched := archive.MatchFiles(skus)

	for i := range items {
		files := matches[items[i].SKU]
		if len(files) == 0 {
			continue
		}
		items[i].ImageFiles = files
		if err := r.repo.SetItemImageFiles(ctx, items[i].ID, files); err != nil {
			return nil, 0, fmt.Errorf("record matched files: %w", err)
		}
	}
	return archive, unmatched, nil
}

func (r *Runner) processItems(ctx context.Context, job *models.ImportJob, items []models.ImportJobItem, archive *Archive) (completed, failed int, errs error) {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		work = make(chan *models.ImportJobItem)
	)

	record := func(ok bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if ok {
			completed++
		} else {
			failed++
		}
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	for w := 0; w < r.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				ok, err := r.runItem(ctx, job, item, archive)
				record(ok, err)
			}
		}()
	}

	for i := range items {
		work <- &items[i]
	}
	close(work)
	wg.Wait()
	return completed, failed, errs
}

// runItem claims an item and drives it through retries to a terminal status.
// The returned error covers bookkeeping failures only.
func (r *Runner) runItem(ctx context.Context, job *models.ImportJob, item *models.ImportJobItem, archive *Archive) (bool, error) {
	itemCtx := r.logg.WithFields(ctx, map[string]any{
		"item_id": item.ID.String(),
		"sku":     item.SKU,
	})

	if err := r.repo.ClaimItem(itemCtx, item.ID, r.now().UTC()); err != nil {
		return false, fmt.Errorf("claim item %s: %w", item.SKU, err)
	}

	var productID uuid.UUID
	backoff := retry.WithMaxRetries(uint64(r.cfg.RetryAttempts-1), retry.NewExponential(r.cfg.RetryBaseDelay))
	attempt := func(attemptCtx context.Context) error {
		runCtx := attemptCtx
		if r.cfg.ItemTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(attemptCtx, r.cfg.ItemTimeout)
			defer cancel()
		}
		id, err := r.processItem(runCtx, job, item, archive)
		if err != nil {
			if isTransientError(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		productID = id
		return nil
	}

	if err := retry.Do(itemCtx, backoff, attempt); err != nil {
		r.logg.Error(itemCtx, "import item failed", err)
		if r.metrics != nil {
			r.metrics.IncItems("failed", 1)
		}
		if markErr := r.repo.MarkItemFailed(itemCtx, item.ID, err.Error(), r.now().UTC()); markErr != nil {
			return false, fmt.Errorf("mark item %s failed: %w", item.SKU, markErr)
		}
		return false, nil
	}

	if r.metrics != nil {
		r.metrics.IncItems("completed", 1)
	}
	if err := r.repo.MarkItemCompleted(itemCtx, item.ID, productID, r.now().UTC()); err != nil {
		return true, fmt.Errorf("mark item %s completed: %w", item.SKU, err)
	}
	return true, nil
}

// processItem creates the product for one CSV row, uploading its matched
// archive images first.
func (r *Runner) processItem(ctx context.Context, job *models.ImportJob, item *models.ImportJobItem, archive *Archive) (uuid.UUID, error) {
	category, err := r.categories.FindBySlug(ctx, item.CategorySlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown category "+item.CategorySlug)
		}
		return uuid.Nil, fmt.Errorf("resolve category: %w", err)
	}

	var baseMediaID *uuid.UUID
	if archive != nil {
		for _, name := range item.ImageFiles {
			mediaID, err := r.uploadItemImage(ctx, job, archive, name)
			if err != nil {
				return uuid.Nil, err
			}
			if baseMediaID == nil {
				baseMediaID = &mediaID
			}
		}
	}

	jobID := job.ID
	prod := &models.Product{
		SKU:         item.SKU,
		Name:        item.Name,
		Description: item.Description,
		CategoryID:  &category.ID,
		PriceCents:  item.PriceCents,
		Status:      item.ProductState,
		Tags:        item.Tags,
		BaseMediaID: baseMediaID,
		ImportJobID: &jobID,
	}
	created, err := r.products.CreateProduct(ctx, prod)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeConflict, "sku "+item.SKU+" already exists")
		}
		return uuid.Nil, fmt.Errorf("create product: %w", err)
	}
	return created.ID, nil
}

func (r *Runner) uploadItemImage(ctx context.Context, job *models.ImportJob, archive *Archive, name string) (uuid.UUID, error) {
	file, ok := archive.File(name)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeInternal, "archive entry "+name+" disappeared")
	}

	mediaID := uuid.New()
	gcsKey := fmt.Sprintf("media/%s/%s/%s", enums.MediaKindProductImage, mediaID, file.Name)
	if err := r.objects.UploadObject(ctx, r.bucket, gcsKey, file.MimeType, file.Data); err != nil {
		return uuid.Nil, fmt.Errorf("upload image %s: %w", name, err)
	}

	uploadedAt := r.now().UTC()
	createdBy := job.CreatedBy
	row := &models.Media{
		ID:         mediaID,
		UserID:     &createdBy,
		Kind:       enums.MediaKindProductImage,
		Status:     enums.MediaStatusUploaded,
		GCSKey:     gcsKey,
		FileName:   file.Name,
		MimeType:   file.MimeType,
		SizeBytes:  int64(len(file.Data)),
		UploadedAt: &uploadedAt,
	}
	if _, err := r.media.Create(ctx, row); err != nil {
		return uuid.Nil, fmt.Errorf("create media row for %s: %w", name, err)
	}
	return mediaID, nil
}

func (r *Runner) failJob(ctx context.Context, job *models.ImportJob, trigger string, start time.Time, cause error) error {
	r.logg.Error(ctx, "import job aborted", cause)
	msg := cause.Error()
	if err := r.repo.FinishJob(ctx, job.ID, enums.ImportJobStatusFailed, 0, 0, 0, &msg, r.now().UTC()); err != nil {
		return multierr.Combine(cause, fmt.Errorf("finish import job: %w", err))
	}
	if r.metrics != nil {
		r.metrics.ObserveJobDuration(trigger, r.now().Sub(start))
		r.metrics.IncJobFailure(trigger)
	}
	return cause
}

// isTransientError separates retryable infrastructure failures from
// permanent row-level rejections.
func isTransientError(err error) bool {
	if appErr := pkgerrors.As(err); appErr != nil {
		return appErr.Code() == pkgerrors.CodeDependency
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}
