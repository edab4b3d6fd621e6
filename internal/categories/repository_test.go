package category

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/db/models"
)

func setupCategoriesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	categories := `
CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT,
  sku TEXT NOT NULL,
  name TEXT NOT NULL
);`
	require.NoError(t, db.Exec(categories).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func mustCreateCategory(t *testing.T, repo *Repository, name, slug string, position int) *models.Category {
	t.Helper()
	row, err := repo.Create(context.Background(), &models.Category{
		ID:       uuid.New(),
		Name:     name,
		Slug:     slug,
		Position: position,
	})
	require.NoError(t, err)
	return row
}

func TestCategoryRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupCategoriesTestDB(t))
	ctx := context.Background()

	created := mustCreateCategory(t, repo, "Apparel", "apparel", 1)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apparel", byID.Name)

	bySlug, err := repo.FindBySlug(ctx, "apparel")
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySlug.ID)
}

func TestCategoryRepositoryListOrdersByPositionThenName(t *testing.T) {
	repo := NewRepository(setupCategoriesTestDB(t))
	ctx := context.Background()

	mustCreateCategory(t, repo, "Mugs", "mugs", 2)
	mustCreateCategory(t, repo, "Apparel", "apparel", 1)
	mustCreateCategory(t, repo, "Bags", "bags", 1)

	rows, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Apparel", rows[0].Name)
	assert.Equal(t, "Bags", rows[1].Name)
	assert.Equal(t, "Mugs", rows[2].Name)
}

func TestCategoryRepositoryCountProducts(t *testing.T) {
	db := setupCategoriesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := mustCreateCategory(t, repo, "Apparel", "apparel", 1)

	insert := `INSERT INTO products (id, category_id, sku, name) VALUES (?, ?, ?, ?)`
	require.NoError(t, db.Exec(insert, uuid.NewString(), created.ID.String(), "TS-001", "Tee").Error)
	require.NoError(t, db.Exec(insert, uuid.NewString(), created.ID.String(), "TS-002", "Hoodie").Error)
	require.NoError(t, db.Exec(insert, uuid.NewString(), nil, "TS-003", "Mug").Error)

	count, err := repo.CountProducts(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCategoryRepositoryDelete(t *testing.T) {
	repo := NewRepository(setupCategoriesTestDB(t))
	ctx := context.Background()

	created := mustCreateCategory(t, repo, "Apparel", "apparel", 1)
	require.NoError(t, repo.Delete(ctx, created.ID))

	_, err := repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
