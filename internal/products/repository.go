package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	"github.com/printforge/printforge-backend/pkg/pagination"
)

// ProductRepository defines CRUD operations for catalog products.
type ProductRepository interface {
	CreateProduct(context.Context, *models.Product) (*models.Product, error)
	UpdateProduct(context.Context, *models.Product) (*models.Product, error)
	DeleteProduct(context.Context, uuid.UUID) error
	FindByID(context.Context, uuid.UUID) (*models.Product, error)
	FindBySKU(context.Context, string) (*models.Product, error)
	GetProductDetail(context.Context, uuid.UUID) (*models.Product, error)
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID. Constraint rows cascade.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// DeleteProductsByImportJob removes every product a failed import created.
func (r *Repository) DeleteProductsByImportJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("import_job_id = ?", jobID).Delete(&models.Product{})
	return res.RowsAffected, res.Error
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads the product by its unique SKU.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ExistingSKUs returns the subset of the provided SKUs already present in the catalog.
func (r *Repository) ExistingSKUs(ctx context.Context, skus []string) ([]string, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var found []string
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("sku IN ?", skus).
		Pluck("sku", &found).
		Error
	return found, err
}

// GetProductDetail fetches a product with category and constraints preloaded.
func (r *Repository) GetProductDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Constraints", func(db *gorm.DB) *gorm.DB {
			return db.Order("z_order ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

type productListQuery struct {
	Pagination pagination.Params
	Filters    ProductListFilters
	PublicOnly bool
}

// ListProductSummaries pages through products newest-first with a keyset cursor.
func (r *Repository) ListProductSummaries(ctx context.Context, query productListQuery) (*ProductListResult, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(query.Pagination.Limit)
	if limitWithBuffer <= pageSize {
		limitWithBuffer = pageSize + 1
	}

	cursor, err := pagination.ParseCursor(query.Pagination.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Product{})

	filter := query.Filters
	if query.PublicOnly {
		qb = qb.Where("status = ?", enums.ProductStatusActive)
	} else if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.CategoryID != nil {
		qb = qb.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.PriceMinCents != nil {
		qb = qb.Where("price_cents >= ?", *filter.PriceMinCents)
	}
	if filter.PriceMaxCents != nil {
		qb = qb.Where("price_cents <= ?", *filter.PriceMaxCents)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		qb = qb.Where("? = ANY(tags)", tag)
	}
	if search := strings.TrimSpace(filter.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(sku) LIKE ?)", pattern, pattern)
	}

	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	qb = qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer)

	var rows []models.Product
	if err := qb.Find(&rows).Error; err != nil {
		return nil, err
	}

	resultRows := rows
	nextCursor := ""
	if len(rows) > pageSize {
		resultRows = rows[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	summaries := make([]ProductSummary, 0, len(resultRows))
	for i := range resultRows {
		summaries = append(summaries, toSummary(&resultRows[i]))
	}

	return &ProductListResult{
		Products:   summaries,
		NextCursor: nextCursor,
	}, nil
}

// ListAllForExport streams the full catalog ordered by SKU for CSV export.
func (r *Repository) ListAllForExport(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Order("sku ASC").
		Find(&rows).
		Error
	return rows, err
}

func toSummary(p *models.Product) ProductSummary {
	return ProductSummary{
		ID:         p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		PriceCents: p.PriceCents,
		Status:     string(p.Status),
		Tags:       append([]string{}, p.Tags...),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
