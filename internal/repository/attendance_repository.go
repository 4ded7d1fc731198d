package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gradewise/gradewise-api/internal/models"
)

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `id, student_id, date, status, check_in, check_out, reason, created_at, updated_at`

// Upsert inserts or replaces the attendance record for a (student, day) pair.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO attendance (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, check_in = EXCLUDED.check_in,
              check_out = EXCLUDED.check_out, reason = EXCLUDED.reason,
              updated_at = EXCLUDED.updated_at
RETURNING %s`, attendanceColumns, attendanceColumns)
	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.Date, record.Status,
		record.CheckIn, record.CheckOut, record.Reason,
		record.CreatedAt, record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// GetByStudentDate returns the attendance record for a student on a day, or
// sql.ErrNoRows when absent.
func (r *AttendanceRepository) GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE student_id = $1 AND date = $2`, attendanceColumns)
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, studentID, date); err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return &record, nil
}

// List returns attendance records matching the filter ordered by date
// descending.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
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
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE %s ORDER BY date DESC`,
		attendanceColumns, strings.Join(where, " AND "))
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// ListSince returns all attendance records on or after start, or the full
// table when start is nil.
func (r *AttendanceRepository) ListSince(ctx context.Context, start *time.Time) ([]models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance WHERE ($1::timestamptz IS NULL OR date >= $1) ORDER BY date ASC`, attendanceColumns)
	var rows []models.Attendance
	if err := r.db.SelectContext(ctx, &rows, query, start); err != nil {
		return nil, fmt.Errorf("list attendance since: %w", err)
	}
	return rows, nil
}

// MarkNoCheckout rewrites past checked-in days that never recorded a
// checkout. Rows without a check-in timestamp (bulk-marked or overridden
// days) are left alone. Runs lazily before reads instead of via a scheduled
// job, so a missed day cannot slip through a downtime window. Returns the
// number of rows rewritten.
func (r *AttendanceRepository) MarkNoCheckout(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE attendance
SET status = $1, updated_at = $2
WHERE status IN ($3, $4) AND check_in IS NOT NULL AND check_out IS NULL AND date < $5`
	res, err := r.db.ExecContext(ctx, query,
		models.AttendanceStatusNoCheckout, time.Now().UTC(),
		models.AttendanceStatusPresent, models.AttendanceStatusLate, before)
	if err != nil {
		return 0, fmt.Errorf("mark no-checkout: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark no-checkout: %w", err)
	}
	return affected, nil
}

// BulkMark sets a status for many students on one day without overwriting
// rows a student already reported as sick or permit.
func (r *AttendanceRepository) BulkMark(ctx context.Context, studentIDs []string, date time.Time, status models.AttendanceStatus) error {
	if len(studentIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk mark: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	query := `INSERT INTO attendance (id, student_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
WHERE attendance.status NOT IN ($7, $8)`
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, query,
			uuid.NewString(), studentID, date, status, now, now,
			models.AttendanceStatusSick, models.AttendanceStatusPermit); err != nil {
			return fmt.Errorf("bulk mark attendance for %s: %w", studentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk mark: %w", err)
	}
	committed = true
	return nil
}
