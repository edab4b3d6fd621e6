package category

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db"
	"github.com/printforge/printforge-backend/pkg/db/models"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
)

// Service exposes catalog category management operations.
type Service interface {
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, categoryID uuid.UUID) error
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Name     string
	Slug     string
	Position int
}

// UpdateCategoryInput holds optional mutation values for a category.
type UpdateCategoryInput struct {
	Name     *string
	Slug     *string
	Position *int
}

// CategoryDTO represents the category payload returned to clients.
type CategoryDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a category service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// CreateCategory inserts a new category after slug validation.
func (s *service) CreateCategory(ctx context.Context, input CreateCategoryInput) (*CategoryDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:     name,
		Slug:     slug,
		Position: input.Position,
	}
	created, err := s.repo.Create(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert category")
	}
	return newCategoryDTO(created), nil
}

// UpdateCategory applies the partial update and saves the row.
func (s *service) UpdateCategory(ctx context.Context, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		category.Name = name
	}
	if input.Slug != nil {
		slug := strings.TrimSpace(*input.Slug)
		if err := validateSlug(slug); err != nil {
			return nil, err
		}
		category.Slug = slug
	}
	if input.Position != nil {
		category.Position = *input.Position
	}

	updated, err := s.repo.Update(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category slug already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update category")
	}
	return newCategoryDTO(updated), nil
}

// DeleteCategory removes the category; referencing products fall back to uncategorized.
func (s *service) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	if err := s.repo.Delete(ctx, categoryID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	return nil
}

// ListCategories returns all categories in display order.
func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, len(rows))
	for i := range rows {
		out[i] = *newCategoryDTO(&rows[i])
	}
	return out, nil
}

// Slugify lowercases the name and collapses separators into hyphens.
func Slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastHyphen := true
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func validateSlug(slug string) error {
	if slug == "" || !slugRe.MatchString(slug) {
		return pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase letters, digits, and hyphens")
	}
	return nil
}

func newCategoryDTO(category *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:        category.ID,
		Name:      category.Name,
		Slug:      category.Slug,
		Position:  category.Position,
		CreatedAt: category.CreatedAt,
		UpdatedAt: category.UpdatedAt,
	}
}
