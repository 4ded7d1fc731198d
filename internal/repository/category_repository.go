package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradewise/gradewise-api/internal/models"
)

// CategoryRepository handles persistence for rating categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all categories ordered by creation time.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	query := `SELECT id, name, kind, created_at FROM categories ORDER BY created_at ASC`
	var rows []models.Category
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return rows, nil
}

// Get returns one category by id, or sql.ErrNoRows when absent.
func (r *CategoryRepository) Get(ctx context.Context, id string) (*models.Category, error) {
	query := `SELECT id, name, kind, created_at FROM categories WHERE id = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return &category, nil
}

// GetAttendance returns the system attendance category, or sql.ErrNoRows
// before seeding has run.
func (r *CategoryRepository) GetAttendance(ctx context.Context) (*models.Category, error) {
	query := `SELECT id, name, kind, created_at FROM categories WHERE kind = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, models.CategoryKindAttendance); err != nil {
		return nil, fmt.Errorf("get attendance category: %w", err)
	}
	return &category, nil
}

// Create inserts a category row.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	category.CreatedAt = time.Now().UTC()
	query := `INSERT INTO categories (id, name, kind, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id, name, kind, created_at`
	var stored models.Category
	if err := r.db.GetContext(ctx, &stored, query, category.ID, category.Name, category.Kind, category.CreatedAt); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &stored, nil
}

// Rename updates the category name.
func (r *CategoryRepository) Rename(ctx context.Context, id, name string) (*models.Category, error) {
	query := `UPDATE categories SET name = $2 WHERE id = $1
RETURNING id, name, kind, created_at`
	var stored models.Category
	if err := r.db.GetContext(ctx, &stored, query, id, name); err != nil {
		return nil, fmt.Errorf("rename category %s: %w", id, err)
	}
	return &stored, nil
}

// Delete removes a category row.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return nil
}
