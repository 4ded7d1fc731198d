package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradewise/gradewise-api/internal/models"
)

// PointRecordRepository handles persistence for award and violation entries.
type PointRecordRepository struct {
	db *sqlx.DB
}

// NewPointRecordRepository constructs the repository.
func NewPointRecordRepository(db *sqlx.DB) *PointRecordRepository {
	return &PointRecordRepository{db: db}
}

const pointRecordColumns = `id, student_id, date, type, points, description, teacher_id, created_at`

// Create inserts a point record.
func (r *PointRecordRepository) Create(ctx context.Context, record *models.PointRecord) (*models.PointRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO point_records (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING %s`, pointRecordColumns, pointRecordColumns)
	var stored models.PointRecord
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.Date, record.Type, record.Points,
		record.Description, record.TeacherID, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("create point record: %w", err)
	}
	return &stored, nil
}

// List returns point records matching the filter ordered by date descending.
func (r *PointRecordRepository) List(ctx context.Context, filter models.PointRecordFilter) ([]models.PointRecord, error) {
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
	query := fmt.Sprintf(`SELECT %s FROM point_records WHERE %s ORDER BY date DESC, created_at DESC`,
		pointRecordColumns, strings.Join(where, " AND "))
	var rows []models.PointRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list point records: %w", err)
	}
	return rows, nil
}

// TotalsSince returns the signed point sum per student on or after start, or
// over the full table when start is nil. Violations subtract.
func (r *PointRecordRepository) TotalsSince(ctx context.Context, start *time.Time) (map[string]int, error) {
	query := `SELECT student_id,
       SUM(CASE WHEN type = $1 THEN -points ELSE points END) AS total
FROM point_records
WHERE ($2::timestamptz IS NULL OR date >= $2)
GROUP BY student_id`
	rows := []struct {
		StudentID string `db:"student_id"`
		Total     int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, models.PointRecordViolation, start); err != nil {
		return nil, fmt.Errorf("point totals: %w", err)
	}
	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.StudentID] = row.Total
	}
	return totals, nil
}

// Delete removes a point record.
func (r *PointRecordRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM point_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete point record %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete point record %s: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
