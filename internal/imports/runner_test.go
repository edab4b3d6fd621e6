package imports

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/metrics"
)

type fakeJobStore struct {
	mu         sync.Mutex
	job        *models.ImportJob
	items      []models.ImportJobItem
	finished   bool
	status     enums.ImportJobStatus
	completed  int
	failed     int
	unmatched  int
	jobErr     *string
	itemStatus map[uuid.UUID]enums.ImportItemStatus
	itemErrs   map[uuid.UUID]string
	claimed    map[uuid.UUID]int
}

func newFakeJobStore(job *models.ImportJob, items []models.ImportJobItem) *fakeJobStore {
	return &fakeJobStore{
		job:        job,
		items:      items,
		itemStatus: make(map[uuid.UUID]enums.ImportItemStatus),
		itemErrs:   make(map[uuid.UUID]string),
		claimed:    make(map[uuid.UUID]int),
	}
}

func (f *fakeJobStore) FindJob(ctx context.Context, id uuid.UUID) (*models.ImportJob, error) {
	if f.job == nil || f.job.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.job, nil
}

func (f *fakeJobStore) ListItems(ctx context.Context, jobID uuid.UUID) ([]models.ImportJobItem, error) {
	return f.items, nil
}

func (f *fakeJobStore) MarkJobProcessing(ctx context.Context, id uuid.UUID, startedAt time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.job.Status != enums.ImportJobStatusPending {
		return 0, nil
	}
	f.job.Status = enums.ImportJobStatusProcessing
	return 1, nil
}

func (f *fakeJobStore) FinishJob(ctx context.Context, id uuid.UUID, status enums.ImportJobStatus, completed, failed, unmatched int, jobErr *string, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = true
	f.status = status
	f.completed = completed
	f.failed = failed
	f.unmatched = unmatched
	f.jobErr = jobErr
	return nil
}

func (f *fakeJobStore) SetItemImageFiles(ctx context.Context, itemID uuid.UUID, files []string) error {
	return nil
}

func (f *fakeJobStore) ClaimItem(ctx context.Context, itemID uuid.UUID, startedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimed[itemID]++
	return nil
}

func (f *fakeJobStore) MarkItemCompleted(ctx context.Context, itemID, productID uuid.UUID, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemStatus[itemID] = enums.ImportItemStatusCompleted
	return nil
}

func (f *fakeJobStore) MarkItemFailed(ctx context.Context, itemID uuid.UUID, message string, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemStatus[itemID] = enums.ImportItemStatusFailed
	f.itemErrs[itemID] = message
	return nil
}

type fakeProductStore struct {
	mu        sync.Mutex
	created   []*models.Product
	createErr error
	failOnce  bool
	deleted   []uuid.UUID
}

func (f *fakeProductStore) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnce {
		f.failOnce = false
		return nil, errors.New("dial tcp: connection refused")
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	product.ID = uuid.New()
	f.created = append(f.created, product)
	return product, nil
}

func (f *fakeProductStore) DeleteProductsByImportJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, jobID)
	return int64(len(f.created)), nil
}

type fakeCategoryResolver struct {
	categories map[string]*models.Category
}

func (f *fakeCategoryResolver) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	if c, ok := f.categories[slug]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMediaStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Media
	made []*models.Media
}

func (f *fakeMediaStore) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.made = append(f.made, media)
	return media, nil
}

func (f *fakeMediaStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeObjectStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	uploads  []string
	downErr  error
	upErr    error
}

func (f *fakeObjectStore) DownloadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if f.downErr != nil {
		return nil, f.downErr
	}
	return f.objects[object], nil
}

func (f *fakeObjectStore) UploadObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upErr != nil {
		return f.upErr
	}
	f.uploads = append(f.uploads, object)
	return nil
}

func runnerConfig() config.ImportsConfig {
	return config.ImportsConfig{
		Concurrency:    2,
		RetryAttempts:  3,
		RetryBaseDelay: time.Millisecond,
		ItemTimeout:    time.Second,
	}
}

func newTestRunner(t *testing.T, repo jobStore, products productStore, categories categoryResolver, media mediaStore, objects objectStore) *Runner {
	t.Helper()
	runner, err := NewRunner(RunnerParams{
		Logger:     logger.New(logger.Options{ServiceName: "imports-test", Output: io.Discard}),
		Repo:       repo,
		Products:   products,
		Categories: categories,
		Media:      media,
		Objects:    objects,
		Bucket:     "pf-media",
		Config:     runnerConfig(),
		Metrics:    metrics.NewImportMetrics(nil),
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func pendingJob() *models.ImportJob {
	return &models.ImportJob{
		ID:         uuid.New(),
		CreatedBy:  uuid.New(),
		Status:     enums.ImportJobStatusPending,
		CSVMediaID: uuid.New(),
	}
}

func jobItems(jobID uuid.UUID, skus ...string) []models.ImportJobItem {
	items := make([]models.ImportJobItem, len(skus))
	for i, sku := range skus {
		items[i] = models.ImportJobItem{
			ID:           uuid.New(),
			JobID:        jobID,
			RowNumber:    i + 2,
			SKU:          sku,
			Name:         "Item " + sku,
			CategorySlug: "apparel",
			PriceCents:   1999,
			Status:       enums.ImportItemStatusPending,
			ProductState: enums.ProductStatusDraft,
		}
	}
	return items
}

func apparelCategories() *fakeCategoryResolver {
	return &fakeCategoryResolver{categories: map[string]*models.Category{
		"apparel": {ID: uuid.New(), Slug: "apparel", Name: "Apparel"},
	}}
}

func TestRunnerCompletesJob(t *testing.T) {
	job := pendingJob()
	items := jobItems(job.ID, "TEE-1", "TEE-2", "TEE-3")
	repo := newFakeJobStore(job, items)
	products := &fakeProductStore{}
	runner := newTestRunner(t, repo, products, apparelCategories(), &fakeMediaStore{}, &fakeObjectStore{})

	if err := runner.Run(context.Background(), job.ID, "worker"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if repo.status != enums.ImportJobStatusCompleted {
		t.Fatalf("expected completed status, got %q", repo.status)
	}
	if repo.completed != 3 || repo.failed != 0 {
		t.Fatalf("expected 3 completed, got completed=%d failed=%d", repo.completed, repo.failed)
	}
	if len(products.created) != 3 {
		t.Fatalf("expected 3 products created, got %d", len(products.created))
	}
	for _, p := range products.created {
		if p.ImportJobID == nil || *p.ImportJobID != job.ID {
			t.Fatalf("expected products tagged with the job id")
		}
	}
}

func TestRunnerMarksFailureWithoutRollback(t *testing.T) {
	job := pendingJob()
	items := jobItems(job.ID, "TEE-1", "TEE-2")
	items[1].CategorySlug = "missing"
	repo := newFakeJobStore(job, items)
	products := &fakeProductStore{}
	runner := newTestRunner(t, repo, products, apparelCategories(), &fakeMediaStore{}, &fakeObjectStore{})

	if err := runner.Run(context.Background(), job.ID, "worker"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if repo.status != enums.ImportJobStatusFailed {
		t.Fatalf("expected failed status, got %q", repo.status)
	}
	if repo.completed != 1 || repo.failed != 1 {
		t.Fatalf("unexpected counts completed=%d failed=%d", repo.completed, repo.failed)
	}
	if got := repo.itemStatus[items[1].ID]; got != enums.ImportItemStatusFailed {
		t.Fatalf("expected item failed, got %q", got)
	}
	if msg := repo.itemErrs[items[1].ID]; msg == "" {
		t.Fatal("expected failure reason recorded")
	}
	if len(products.deleted) != 0 {
		t.Fatal("expected no rollback")
	}
}

func TestRunnerRollsBackWhenRequested(t *testing.T) {
	job := pendingJob()
	job.RollbackOnFailure = true
	items := jobItems(job.ID, "TEE-1", "TEE-2")
	items[1].CategorySlug = "missing"
	repo := newFakeJobStore(job, items)
	products := &fakeProductStore{}
	runner := newTestRunner(t, repo, products, apparelCategories(), &fakeMediaStore{}, &fakeObjectStore{})

	if err := runner.Run(context.Background(), job.ID, "worker"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if repo.status != enums.ImportJobStatusRolledBack {
		t.Fatalf("expected rolled back status, got %q", repo.status)
	}
	if len(products.deleted) != 1 || products.deleted[0] != job.ID {
		t.Fatalf("expected rollback delete for job, got %v", products.deleted)
	}
}

func TestRunnerRetriesTransientErrors(t *testing.T) {
	job := pendingJob()
	items := jobItems(job.ID, "TEE-1")
	repo := newFakeJobStore(job, items)
	products := &fakeProductStore{failOnce: true}
	runner := newTestRunner(t, repo, products, apparelCategories(), &fakeMediaStore{}, &fakeObjectStore{})

	if err := runner.Run(context.Background(), job.ID, "worker"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if repo.status != enums.ImportJobStatusCompleted {
		t.Fatalf("expected completed after retry, got %q", repo.status)
	}
	if len(products.created) != 1 {
		t.Fatalf("expected product created on retry, got %d", len(products.created))
	}
}

func TestRunnerSkipsClaimedJob(t *testing.T) {
	job := pendingJob()
	job.Status = enums.ImportJobStatusProcessing
	repo := newFakeJobStore(job, nil)
	runner := newTestRunner(t, repo, &fakeProductStore{}, apparelCategories(), &fakeMediaStore{}, &fakeObjectStore{})

	if err := runner.Run(context.Background(), job.ID, "worker"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if repo.finished {
		t.Fatal("expected no finish call for an already-claimed job")
	}
}

func TestRunnerUploadsMatchedImages(t *testing.T) {
	job := pendingJob()
	archiveID := uuid.New()
	job.ArchiveMediaID = &archiveID
	items := jobItems(job.ID, "TEE-1")
	repo := newFakeJobStore(job, items)
	products := &fakeProductStore{}
	media := &fakeMediaStore{rows: map[uuid.UUID]*models.Media{
		archiveID: {ID: archiveID, Kind: enums.MediaKindImportArchive, Status: enums.MediaStatusUploaded, GCSKey: "media/import_archive/x/batch.zip"},
	}}
	objects := &fakeObjectStore{objects: map[string][]byte{
		"media/import_archive/x/batch.zip": buildZip(t, map[string][]byte{
			"TEE-1-front.png": []byte("png"),
			"stray.png":       []byte("png"),
		}),
	}}
	runner := newTestRunner(t, repo, products, apparelCategories(), media, objects)

	if err := runner.Run(context.Background(), job.ID, "worker"); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if repo.status != enums.ImportJobStatusCompleted {
		t.Fatalf("expected completed status, got %q", repo.status)
	}
	if repo.unmatched != 1 {
		t.Fatalf("expected 1 unmatched file, got %d", repo.unmatched)
	}
	if len(objects.uploads) != 1 {
		t.Fatalf("expected 1 uploaded image, got %v", objects.uploads)
	}
	if len(media.made) != 1 || media.made[0].Kind != enums.MediaKindProductImage {
		t.Fatalf("expected a product image media row, got %+v", media.made)
	}
	if len(products.created) != 1 || products.created[0].BaseMediaID == nil {
		t.Fatal("expected product linked to uploaded image")
	}
}
