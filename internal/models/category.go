package models

import "time"

// CategoryKind distinguishes teacher-created rating dimensions from the
// single system-managed attendance category. An explicit tag avoids the
// magic-id collision a reserved string identifier would invite.
type CategoryKind string

const (
	CategoryKindManual     CategoryKind = "manual"
	CategoryKindAttendance CategoryKind = "attendance"
)

// Category is a named rating dimension scored 1-5 per student per day.
type Category struct {
	ID        string       `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	Kind      CategoryKind `db:"kind" json:"kind"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// IsSystem reports whether the category is the reserved attendance category.
func (c Category) IsSystem() bool {
	return c.Kind == CategoryKindAttendance
}
