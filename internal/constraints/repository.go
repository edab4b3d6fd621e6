package constraint

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db/models"
)

// Repository wires placement constraint persistence helpers.
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

// Create inserts a new constraint row.
func (r *Repository) Create(ctx context.Context, row *models.PlacementConstraint) (*models.PlacementConstraint, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// Update saves an existing constraint row.
func (r *Repository) Update(ctx context.Context, row *models.PlacementConstraint) (*models.PlacementConstraint, error) {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// Delete removes a constraint by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PlacementConstraint{}).Error
}

// FindByID loads a single constraint.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PlacementConstraint, error) {
	var row models.PlacementConstraint
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByProduct returns all constraints for a product in z order.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.PlacementConstraint, error) {
	var rows []models.PlacementConstraint
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("z_order ASC").
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}
