package constraint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// Service exposes placement constraint management for products.
type Service interface {
	CreateConstraint(ctx context.Context, productID uuid.UUID, input ConstraintInput) (*ConstraintDTO, error)
	UpdateConstraint(ctx context.Context, constraintID uuid.UUID, input UpdateConstraintInput) (*ConstraintDTO, error)
	DeleteConstraint(ctx context.Context, constraintID uuid.UUID) error
	ListConstraints(ctx context.Context, productID uuid.UUID) ([]ConstraintDTO, error)
	ValidatePlacement(ctx context.Context, productID uuid.UUID, candidate Rect) (*PlacementReport, error)
}

// ConstraintInput holds the payload to create a constraint region.
type ConstraintInput struct {
	Name     string
	Mode     enums.ConstraintMode
	Rect     Rect
	SnapStep *float64
	ZOrder   int
	Detected bool
}

// UpdateConstraintInput holds optional mutation values for a constraint.
type UpdateConstraintInput struct {
	Name     *string
	Mode     *enums.ConstraintMode
	Rect     *Rect
	SnapStep *float64
	ZOrder   *int
}

// ConstraintDTO represents the constraint payload returned to clients.
type ConstraintDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	Rect      Rect      `json:"rect"`
	SnapStep  *float64  `json:"snap_step,omitempty"`
	ZOrder    int       `json:"z_order"`
	Detected  bool      `json:"detected"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlacementReport describes whether a candidate logo rect is acceptable.
type PlacementReport struct {
	Valid            bool        `json:"valid"`
	ContainedBy      *uuid.UUID  `json:"contained_by,omitempty"`
	ForbiddenOverlap []uuid.UUID `json:"forbidden_overlap,omitempty"`
	Reasons          []string    `json:"reasons,omitempty"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type service struct {
	repo        *Repository
	dbClient    *db.Client
	productRepo productLoader
}

// NewService constructs a constraint service instance.
func NewService(repo *Repository, dbClient *db.Client, productRepo productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("constraint repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, dbClient: dbClient, productRepo: productRepo}, nil
}

// CreateConstraint snaps, validates, and persists a new region.
func (s *service) CreateConstraint(ctx context.Context, productID uuid.UUID, input ConstraintInput) (*ConstraintDTO, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mode must be allowed or forbidden")
	}
	if input.SnapStep != nil && *input.SnapStep <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snap_step must be positive")
	}

	rect := input.Rect
	if input.SnapStep != nil {
		rect = rect.Snap(*input.SnapStep)
	}
	if !rect.InUnitSquare() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rect must lie within the unit square with positive size")
	}

	siblings, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list constraints")
	}
	if err := checkRegionInvariants(rect, input.Mode, siblings, uuid.Nil); err != nil {
		return nil, err
	}

	row := &models.PlacementConstraint{
		ProductID: productID,
		Name:      name,
		Mode:      input.Mode,
		X:         rect.X,
		Y:         rect.Y,
		Width:     rect.Width,
		Height:    rect.Height,
		SnapStep:  input.SnapStep,
		ZOrder:    input.ZOrder,
		Detected:  input.Detected,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert constraint")
	}
	return newConstraintDTO(created), nil
}

// UpdateConstraint applies the partial update and revalidates the region set.
func (s *service) UpdateConstraint(ctx context.Context, constraintID uuid.UUID, input UpdateConstraintInput) (*ConstraintDTO, error) {
	row, err := s.repo.FindByID(ctx, constraintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "constraint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load constraint")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		row.Name = name
	}
	if input.Mode != nil {
		if !input.Mode.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "mode must be allowed or forbidden")
		}
		row.Mode = *input.Mode
	}
	if input.SnapStep != nil {
		if *input.SnapStep <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "snap_step must be positive")
		}
		row.SnapStep = input.SnapStep
	}
	if input.ZOrder != nil {
		row.ZOrder = *input.ZOrder
	}

	rect := Rect{X: row.X, Y: row.Y, Width: row.Width, Height: row.Height}
	if input.Rect != nil {
		rect = *input.Rect
		if row.SnapStep != nil {
			rect = rect.Snap(*row.SnapStep)
		}
		// manual edits drop the detected flag
		row.Detected = false
	}
	if !rect.InUnitSquare() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rect must lie within the unit square with positive size")
	}
	row.X, row.Y, row.Width, row.Height = rect.X, rect.Y, rect.Width, rect.Height

	siblings, err := s.repo.ListByProduct(ctx, row.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list constraints")
	}
	if err := checkRegionInvariants(rect, row.Mode, siblings, row.ID); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update constraint")
	}
	return newConstraintDTO(updated), nil
}

// DeleteConstraint removes a region.
func (s *service) DeleteConstraint(ctx context.Context, constraintID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, constraintID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "constraint not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load constraint")
	}
	if err := s.repo.Delete(ctx, constraintID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete constraint")
	}
	return nil
}

// ListConstraints returns a product's regions in z order.
func (s *service) ListConstraints(ctx context.Context, productID uuid.UUID) ([]ConstraintDTO, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list constraints")
	}
	out := make([]ConstraintDTO, len(rows))
	for i := range rows {
		out[i] = *newConstraintDTO(&rows[i])
	}
	return out, nil
}

// ValidatePlacement reports whether a candidate logo rect sits fully inside
// some allowed region without touching any forbidden region.
func (s *service) ValidatePlacement(ctx context.Context, productID uuid.UUID, candidate Rect) (*PlacementReport, error) {
	if err := s.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	if !candidate.InUnitSquare() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "candidate rect must lie within the unit square with positive size")
	}
	rows, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list constraints")
	}
	report := EvaluatePlacement(candidate, rows)
	return report, nil
}

// EvaluatePlacement runs the containment/overlap checks against an in-memory
// constraint set. A product with no allowed regions leaves placement
// unconstrained: containment is only enforced once at least one allowed
// region exists, while forbidden overlaps are always rejected.
func EvaluatePlacement(candidate Rect, rows []models.PlacementConstraint) *PlacementReport {
	report := &PlacementReport{}

	hasAllowed := false
	for i := range rows {
		row := &rows[i]
		region := Rect{X: row.X, Y: row.Y, Width: row.Width, Height: row.Height}
		switch row.Mode {
		case enums.ConstraintModeAllowed:
			hasAllowed = true
			if report.ContainedBy == nil && region.Contains(candidate) {
				id := row.ID
				report.ContainedBy = &id
			}
		case enums.ConstraintModeForbidden:
			if region.Intersects(candidate) {
				report.ForbiddenOverlap = append(report.ForbiddenOverlap, row.ID)
			}
		}
	}

	if hasAllowed && report.ContainedBy == nil {
		report.Reasons = append(report.Reasons, "logo is not fully inside any allowed region")
	}
	if len(report.ForbiddenOverlap) > 0 {
		report.Reasons = append(report.Reasons, "logo intersects a forbidden region")
	}
	report.Valid = len(report.Reasons) == 0
	return report
}

// checkRegionInvariants enforces the product-level region rules: allowed
// regions may not overlap each other, and a forbidden region may not fully
// contain an allowed one. excludeID skips the row being updated.
func checkRegionInvariants(rect Rect, mode enums.ConstraintMode, siblings []models.PlacementConstraint, excludeID uuid.UUID) error {
	for i := range siblings {
		sib := &siblings[i]
		if sib.ID == excludeID {
			continue
		}
		other := Rect{X: sib.X, Y: sib.Y, Width: sib.Width, Height: sib.Height}

		switch {
		case mode == enums.ConstraintModeAllowed && sib.Mode == enums.ConstraintModeAllowed:
			if rect.Intersects(other) {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("allowed region overlaps %q", sib.Name))
			}
		case mode == enums.ConstraintModeForbidden && sib.Mode == enums.ConstraintModeAllowed:
			if rect.Contains(other) {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("forbidden region fully contains allowed region %q", sib.Name))
			}
		case mode == enums.ConstraintModeAllowed && sib.Mode == enums.ConstraintModeForbidden:
			if other.Contains(rect) {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("allowed region is fully inside forbidden region %q", sib.Name))
			}
		}
	}
	return nil
}

func (s *service) ensureProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return nil
}

func newConstraintDTO(row *models.PlacementConstraint) *ConstraintDTO {
	return &ConstraintDTO{
		ID:        row.ID,
		ProductID: row.ProductID,
		Name:      row.Name,
		Mode:      string(row.Mode),
		Rect:      Rect{X: row.X, Y: row.Y, Width: row.Width, Height: row.Height},
		SnapStep:  row.SnapStep,
		ZOrder:    row.ZOrder,
		Detected:  row.Detected,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
