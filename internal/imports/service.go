package imports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

// Service covers the bulk import lifecycle.
type Service interface {
	CreateImportJob(ctx context.Context, input CreateImportJobInput) (*ImportJobDTO, error)
	GetImportJob(ctx context.Context, id uuid.UUID) (*ImportJobDTO, []ImportItemDTO, error)
	ListImportJobs(ctx context.Context, limit int) ([]ImportJobDTO, error)
	RollbackImportJob(ctx context.Context, id uuid.UUID) (*ImportJobDTO, error)
	TemplateCSV() []byte
}

type mediaLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

type skuChecker interface {
	ExistingSKUs(ctx context.Context, skus []string) ([]string, error)
}

type productRemover interface {
	DeleteProductsByImportJob(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type objectDownloader interface {
	DownloadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// Dispatcher hands a created job to whatever executes it.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID uuid.UUID) error
}

// ServiceParams bundle the import service dependencies.
type ServiceParams struct {
	Logger     *logger.Logger
	DB         *db.Client
	Repo       *Repository
	Media      mediaLoader
	Products   skuChecker
	Remover    productRemover
	Objects    objectDownloader
	Dispatcher Dispatcher
	Bucket     string
	Config     config.ImportsConfig
}

type service struct {
	logg       *logger.Logger
	dbClient   *db.Client
	repo       *Repository
	media      mediaLoader
	products   skuChecker
	remover    productRemover
	objects    objectDownloader
	dispatcher Dispatcher
	bucket     string
	cfg        config.ImportsConfig
}

// NewService validates dependencies and builds the import service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("import repository required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media loader required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product sku checker required")
	}
	if params.Remover == nil {
		return nil, fmt.Errorf("product remover required")
	}
	if params.Objects == nil {
		return nil, fmt.Errorf("object downloader required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("job dispatcher required")
	}
	if params.Bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	return &service{
		logg:       params.Logger,
		dbClient:   params.DB,
		repo:       params.Repo,
		media:      params.Media,
		products:   params.Products,
		remover:    params.Remover,
		objects:    params.Objects,
		dispatcher: params.Dispatcher,
		bucket:     params.Bucket,
		cfg:        params.Config,
	}, nil
}

func (s *service) CreateImportJob(ctx context.Context, input CreateImportJobInput) (*ImportJobDTO, error) {
	csvMedia, err := s.requireMedia(ctx, input.CSVMediaID, enums.MediaKindImportCSV)
	if err != nil {
		return nil, err
	}
	if input.ArchiveMediaID != nil {
		if _, err := s.requireMedia(ctx, *input.ArchiveMediaID, enums.MediaKindImportArchive); err != nil {
			return nil, err
		}
	}

	data, err := s.objects.DownloadObject(ctx, s.bucket, csvMedia.GCSKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "download import csv")
	}
	rows, rowErrs, err := ParseCSV(data, s.cfg.MaxRows)
	if err != nil {
		return nil, err
	}
	if len(rowErrs) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "csv contains invalid rows").WithDetails(rowErrs)
	}

	skus := make([]string, len(rows))
	for i, row := range rows {
		skus[i] = row.SKU
	}
	existing, err := s.products.ExistingSKUs(ctx, skus)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing skus")
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "csv contains skus that already exist").WithDetails(existing)
	}

	rollback := s.cfg.RollbackDefault
	if input.RollbackOnFailure != nil {
		rollback = *input.RollbackOnFailure
	}

	job := &models.ImportJob{
		CreatedBy:         input.CreatedBy,
		Status:            enums.ImportJobStatusPending,
		CSVMediaID:        input.CSVMediaID,
		ArchiveMediaID:    input.ArchiveMediaID,
		RollbackOnFailure: rollback,
		TotalItems:        len(rows),
		Items:             buildItems(rows),
	}
	txErr := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateJob(ctx, job)
		return err
	})
	if txErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, txErr, "create import job")
	}

	if err := s.dispatcher.Dispatch(ctx, job.ID); err != nil {
		// The job stays pending; a manual re-dispatch or the worker's
		// backlog sweep can pick it up.
		logCtx := s.logg.WithJobID(ctx, job.ID.String())
		s.logg.Error(logCtx, "failed to dispatch import job", err)
	}

	return newJobDTO(job), nil
}

func (s *service) GetImportJob(ctx context.Context, id uuid.UUID) (*ImportJobDTO, []ImportItemDTO, error) {
	job, err := s.repo.FindJobWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load import job")
	}
	items := make([]ImportItemDTO, len(job.Items))
	for i := range job.Items {
		items[i] = newItemDTO(&job.Items[i])
	}
	return newJobDTO(job), items, nil
}

func (s *service) ListImportJobs(ctx context.Context, limit int) ([]ImportJobDTO, error) {
	jobs, err := s.repo.ListJobs(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list import jobs")
	}
	dtos := make([]ImportJobDTO, len(jobs))
	for i := range jobs {
		dtos[i] = *newJobDTO(&jobs[i])
	}
	return dtos, nil
}

// RollbackImportJob deletes every product a finished job created.
func (s *service) RollbackImportJob(ctx context.Context, id uuid.UUID) (*ImportJobDTO, error) {
	job, err := s.repo.FindJob(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "import job not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load import job")
	}
	switch job.Status {
	case enums.ImportJobStatusCompleted, enums.ImportJobStatusFailed:
	case enums.ImportJobStatusRolledBack:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "import job is already rolled back")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "import job must finish before it can be rolled back")
	}

	removed, err := s.remover.DeleteProductsByImportJob(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete imported products")
	}
	if err := s.repo.SetJobStatus(ctx, id, enums.ImportJobStatusRolledBack); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark job rolled back")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"job_id":           id.String(),
		"products_removed": removed,
	})
	s.logg.Info(logCtx, "import job rolled back")

	job.Status = enums.ImportJobStatusRolledBack
	return newJobDTO(job), nil
}

func (s *service) TemplateCSV() []byte {
	return TemplateCSV()
}

func (s *service) requireMedia(ctx context.Context, id uuid.UUID, kind enums.MediaKind) (*models.Media, error) {
	row, err := s.media.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("media %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}
	if row.Kind != kind {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("media %s has kind %q, want %q", id, row.Kind, kind))
	}
	if row.Status != enums.MediaStatusUploaded {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("media %s has not finished uploading", id))
	}
	return row, nil
}

func buildItems(rows []ParsedRow) []models.ImportJobItem {
	items := make([]models.ImportJobItem, len(rows))
	for i, row := range rows {
		items[i] = models.ImportJobItem{
			RowNumber:    row.RowNumber,
			SKU:          row.SKU,
			Name:         row.Name,
			CategorySlug: row.CategorySlug,
			PriceCents:   row.PriceCents,
			Status:       enums.ImportItemStatusPending,
			ProductState: row.Status,
			Description:  row.Description,
			Tags:         pq.StringArray(row.Tags),
		}
	}
	return items
}
