package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// Service exposes catalog product management operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	ExportCatalogCSV(ctx context.Context) ([]byte, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	SKU          string
	Name         string
	Description  *string
	CategoryID   *uuid.UUID
	PriceCents   int
	Status       enums.ProductStatus
	Tags         []string
	BaseMediaID  *uuid.UUID
	PrintWidthMM *int
	ImportJobID  *uuid.UUID
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	SKU          *string
	Name         *string
	Description  *string
	CategoryID   *uuid.UUID
	ClearCategory bool
	PriceCents   *int
	Status       *enums.ProductStatus
	Tags         *[]string
	BaseMediaID  *uuid.UUID
	PrintWidthMM *int
}

type categoryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type mediaReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

// service implements the product service.
type service struct {
	repo         *Repository
	dbClient     *db.Client
	categoryRepo categoryLoader
	mediaRepo    mediaReader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, dbClient *db.Client, categoryRepo categoryLoader, mediaRepo mediaReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if categoryRepo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if mediaRepo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	return &service{
		repo:         repo,
		dbClient:     dbClient,
		categoryRepo: categoryRepo,
		mediaRepo:    mediaRepo,
	}, nil
}

// CreateProduct validates references and inserts the product.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	sku := NormalizeSKU(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be non-negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusDraft
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}

	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if input.BaseMediaID != nil {
		if err := s.ensureProductImage(ctx, *input.BaseMediaID); err != nil {
			return nil, err
		}
	}
	if input.PrintWidthMM != nil && *input.PrintWidthMM <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "print_width_mm must be positive")
	}

	prod := &models.Product{
		SKU:          sku,
		Name:         name,
		Description:  input.Description,
		CategoryID:   input.CategoryID,
		PriceCents:   input.PriceCents,
		Status:       status,
		Tags:         normalizeTags(input.Tags),
		BaseMediaID:  input.BaseMediaID,
		PrintWidthMM: input.PrintWidthMM,
		ImportJobID:  input.ImportJobID,
	}

	created, err := s.repo.CreateProduct(ctx, prod)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}

	detail, err := s.repo.GetProductDetail(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(detail), nil
}

// UpdateProduct applies the partial update inside a transaction.
func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	prod, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if input.BaseMediaID != nil {
		if err := s.ensureProductImage(ctx, *input.BaseMediaID); err != nil {
			return nil, err
		}
	}
	if input.PrintWidthMM != nil && *input.PrintWidthMM <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "print_width_mm must be positive")
	}

	if err := applyUpdateToProduct(prod, input); err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.UpdateProduct(ctx, prod); err != nil {
			return err
		}
		return nil
	}); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	detail, err := s.repo.GetProductDetail(ctx, prod.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(detail), nil
}

// DeleteProduct removes a product and relies on FK cascades for constraint rows.
func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

// GetProduct returns the product with category and constraints.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	detail, err := s.repo.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return NewProductDTO(detail), nil
}

// ListProducts pages through products applying the provided filters.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status filter")
	}
	result, err := s.repo.ListProductSummaries(ctx, productListQuery{
		Pagination: input.Pagination,
		Filters:    input.Filters,
		PublicOnly: input.PublicOnly,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return result, nil
}

func (s *service) ensureCategory(ctx context.Context, categoryID uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return nil
}

func (s *service) ensureProductImage(ctx context.Context, mediaID uuid.UUID) error {
	mediaRow, err := s.mediaRepo.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "media not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load media")
	}
	if mediaRow.Kind != enums.MediaKindProductImage {
		return pkgerrors.New(pkgerrors.CodeValidation, "media must be a product image")
	}
	if mediaRow.Status != enums.MediaStatusUploaded {
		return pkgerrors.New(pkgerrors.CodeValidation, "media upload is not finished")
	}
	return nil
}

// NormalizeSKU trims whitespace and uppercases the SKU for matching.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func applyUpdateToProduct(prod *models.Product, input UpdateProductInput) error {
	if input.SKU != nil {
		sku := NormalizeSKU(*input.SKU)
		if sku == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "sku cannot be empty")
		}
		prod.SKU = sku
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		prod.Name = name
	}
	if input.Description != nil {
		prod.Description = input.Description
	}
	if input.ClearCategory {
		prod.CategoryID = nil
	} else if input.CategoryID != nil {
		prod.CategoryID = input.CategoryID
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price_cents must be non-negative")
		}
		prod.PriceCents = *input.PriceCents
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		prod.Status = *input.Status
	}
	if input.Tags != nil {
		prod.Tags = normalizeTags(*input.Tags)
	}
	if input.BaseMediaID != nil {
		prod.BaseMediaID = input.BaseMediaID
	}
	if input.PrintWidthMM != nil {
		prod.PrintWidthMM = input.PrintWidthMM
	}
	return nil
}
