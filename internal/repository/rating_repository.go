package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gradewise/gradewise-api/internal/models"
)

// RatingRepository handles persistence for daily rating records.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

const ratingColumns = `id, student_id, date, scores, average, created_at, updated_at`

// Upsert inserts or replaces the rating for a (student, day) pair. The
// deterministic id keeps repeated saves landing on the same row.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	now := time.Now().UTC()
	if rating.ID == "" {
		rating.ID = models.RatingID(rating.StudentID, rating.Date)
	}
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	rating.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO ratings (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, date)
DO UPDATE SET scores = EXCLUDED.scores, average = EXCLUDED.average, updated_at = EXCLUDED.updated_at
RETURNING %s`, ratingColumns, ratingColumns)
	var stored models.Rating
	if err := r.db.GetContext(ctx, &stored, query,
		rating.ID, rating.StudentID, rating.Date, rating.Scores, rating.Average,
		rating.CreatedAt, rating.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert rating: %w", err)
	}
	return &stored, nil
}

// GetByStudentDate returns the rating for a student on a day, or
// sql.ErrNoRows when absent.
func (r *RatingRepository) GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE student_id = $1 AND date = $2`, ratingColumns)
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, studentID, date); err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &rating, nil
}

// List returns ratings matching the filter ordered by date descending.
func (r *RatingRepository) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE %s ORDER BY date DESC`,
		ratingColumns, strings.Join(where, " AND "))
	var rows []models.Rating
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return rows, nil
}

// ListSince returns all ratings on or after start, or the full table when
// start is nil, ordered by date ascending for chart assembly.
func (r *RatingRepository) ListSince(ctx context.Context, start *time.Time) ([]models.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE ($1::timestamptz IS NULL OR date >= $1) ORDER BY date ASC`, ratingColumns)
	var rows []models.Rating
	if err := r.db.SelectContext(ctx, &rows, query, start); err != nil {
		return nil, fmt.Errorf("list ratings since: %w", err)
	}
	return rows, nil
}

// ListWithCategory returns every rating whose score map contains the given
// category key. Used when a category is deleted to rewrite affected rows.
func (r *RatingRepository) ListWithCategory(ctx context.Context, categoryID string) ([]models.Rating, error) {
	query := fmt.Sprintf(`SELECT %s FROM ratings WHERE scores ? $1`, ratingColumns)
	var rows []models.Rating
	if err := r.db.SelectContext(ctx, &rows, query, categoryID); err != nil {
		return nil, fmt.Errorf("list ratings with category %s: %w", categoryID, err)
	}
	return rows, nil
}
