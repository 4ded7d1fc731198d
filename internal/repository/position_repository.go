package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradewise/gradewise-api/internal/models"
)

// PositionRepository handles persistence for class positions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository constructs the repository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// List returns all positions ordered by name.
func (r *PositionRepository) List(ctx context.Context) ([]models.Position, error) {
	query := `SELECT id, name, created_at FROM positions ORDER BY name ASC`
	var rows []models.Position
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return rows, nil
}

// Get returns one position by id, or sql.ErrNoRows when absent.
func (r *PositionRepository) Get(ctx context.Context, id string) (*models.Position, error) {
	query := `SELECT id, name, created_at FROM positions WHERE id = $1`
	var position models.Position
	if err := r.db.GetContext(ctx, &position, query, id); err != nil {
		return nil, fmt.Errorf("get position %s: %w", id, err)
	}
	return &position, nil
}

// Create inserts a position row.
func (r *PositionRepository) Create(ctx context.Context, position *models.Position) (*models.Position, error) {
	if position.ID == "" {
		position.ID = uuid.NewString()
	}
	position.CreatedAt = time.Now().UTC()
	query := `INSERT INTO positions (id, name, created_at)
VALUES ($1, $2, $3)
RETURNING id, name, created_at`
	var stored models.Position
	if err := r.db.GetContext(ctx, &stored, query, position.ID, position.Name, position.CreatedAt); err != nil {
		return nil, fmt.Errorf("create position: %w", err)
	}
	return &stored, nil
}

// Rename updates the position name.
func (r *PositionRepository) Rename(ctx context.Context, id, name string) (*models.Position, error) {
	query := `UPDATE positions SET name = $2 WHERE id = $1
RETURNING id, name, created_at`
	var stored models.Position
	if err := r.db.GetContext(ctx, &stored, query, id, name); err != nil {
		return nil, fmt.Errorf("rename position %s: %w", id, err)
	}
	return &stored, nil
}

// Delete removes a position row.
func (r *PositionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete position %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete position %s: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
