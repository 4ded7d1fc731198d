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

// StudentRepository handles persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, email, phone, parent_phone, address, photo_url, password_hash, position_id, device_id, created_at, updated_at`

// List returns students matching the provided filter plus the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.PositionID != "" {
		where = append(where, fmt.Sprintf("position_id = $%d", len(args)+1))
		args = append(args, filter.PositionID)
	}
	whereClause := strings.Join(where, " AND ")

	allowedSort := map[string]string{
		"name":       "name",
		"email":      "email",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSort[filter.SortBy]
	if !ok {
		sortColumn = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentColumns, whereClause, sortColumn, order, size, offset)
	var rows []models.Student
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return rows, total, nil
}

// ListAll returns every student ordered by name, for recap assembly.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY name ASC`, studentColumns)
	var rows []models.Student
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return rows, nil
}

// Get returns one student by id, or sql.ErrNoRows when absent.
func (r *StudentRepository) Get(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("get student %s: %w", id, err)
	}
	return &student, nil
}

// GetByEmail returns one student by email, or sql.ErrNoRows when absent.
func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE email = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, email); err != nil {
		return nil, fmt.Errorf("get student by email: %w", err)
	}
	return &student, nil
}

// Create inserts a student row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	now := time.Now().UTC()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = now
	student.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO students (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING %s`, studentColumns, studentColumns)
	var stored models.Student
	if err := r.db.GetContext(ctx, &stored, query,
		student.ID, student.Name, student.Email, student.Phone, student.ParentPhone,
		student.Address, student.PhotoURL, student.PasswordHash, student.PositionID,
		student.DeviceID, student.CreatedAt, student.UpdatedAt); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return &stored, nil
}

// Update rewrites the mutable fields of a student row.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) (*models.Student, error) {
	student.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE students
SET name = $2, email = $3, phone = $4, parent_phone = $5, address = $6,
    photo_url = $7, password_hash = $8, position_id = $9, device_id = $10, updated_at = $11
WHERE id = $1
RETURNING %s`, studentColumns)
	var stored models.Student
	if err := r.db.GetContext(ctx, &stored, query,
		student.ID, student.Name, student.Email, student.Phone, student.ParentPhone,
		student.Address, student.PhotoURL, student.PasswordHash, student.PositionID,
		student.DeviceID, student.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update student %s: %w", student.ID, err)
	}
	return &stored, nil
}

// Delete removes a student together with their ratings, attendance and point
// records in one transaction.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM ratings WHERE student_id = $1`,
		`DELETE FROM attendance WHERE student_id = $1`,
		`DELETE FROM point_records WHERE student_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("delete student dependents: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	committed = true
	return nil
}

// BindDevice stores the device identifier captured on first check-in.
func (r *StudentRepository) BindDevice(ctx context.Context, id, deviceID string) error {
	query := `UPDATE students SET device_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, deviceID, time.Now().UTC()); err != nil {
		return fmt.Errorf("bind device for student %s: %w", id, err)
	}
	return nil
}

// ResetDevice clears the device binding so the student can check in from a
// new phone.
func (r *StudentRepository) ResetDevice(ctx context.Context, id string) error {
	query := `UPDATE students SET device_id = NULL, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("reset device for student %s: %w", id, err)
	}
	return nil
}

// ClearPosition detaches every student from the given position.
func (r *StudentRepository) ClearPosition(ctx context.Context, positionID string) error {
	query := `UPDATE students SET position_id = NULL, updated_at = $2 WHERE position_id = $1`
	if _, err := r.db.ExecContext(ctx, query, positionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("clear position %s: %w", positionID, err)
	}
	return nil
}
