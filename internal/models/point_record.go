package models

import "time"

// PointRecordType distinguishes awards from violations.
type PointRecordType string

const (
	PointRecordAward     PointRecordType = "award"
	PointRecordViolation PointRecordType = "violation"
)

// Valid returns true when the type is a supported value.
func (t PointRecordType) Valid() bool {
	return t == PointRecordAward || t == PointRecordViolation
}

// PointRecord is an ad-hoc signed point entry, independent of the star
// rating categories.
type PointRecord struct {
	ID          string          `db:"id" json:"id"`
	StudentID   string          `db:"student_id" json:"student_id"`
	Date        time.Time       `db:"date" json:"date"`
	Type        PointRecordType `db:"type" json:"type"`
	Points      int             `db:"points" json:"points"`
	Description string          `db:"description" json:"description"`
	TeacherID   string          `db:"teacher_id" json:"teacher_id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// PointRecordFilter scopes point record listings.
type PointRecordFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}
