package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScoreMap maps category id to a 0-5 score and is persisted as JSONB.
type ScoreMap map[string]int

// Value implements driver.Valuer.
func (m ScoreMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner. Malformed payloads scan as an empty map so a
// single corrupted row degrades to zero contribution instead of failing the
// whole aggregation read.
func (m *ScoreMap) Scan(src interface{}) error {
	if src == nil {
		*m = ScoreMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported score map source %T", src)
	}
	parsed := ScoreMap{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		*m = ScoreMap{}
		return nil
	}
	*m = parsed
	return nil
}

// Average returns the arithmetic mean of all scores, 0 for an empty map.
func (m ScoreMap) Average() float64 {
	if len(m) == 0 {
		return 0
	}
	sum := 0
	for _, score := range m {
		sum += score
	}
	return float64(sum) / float64(len(m))
}

// Rating holds one day's combined manual and automatic category scores for
// one student. The id is deterministic per (student, day) so saves are
// idempotent.
type Rating struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Date      time.Time `db:"date" json:"date"`
	Scores    ScoreMap  `db:"scores" json:"scores"`
	Average   float64   `db:"average" json:"average"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RatingID builds the deterministic record id for a student and day.
func RatingID(studentID string, date time.Time) string {
	return fmt.Sprintf("%s-%s", studentID, date.Format(DateLayout))
}

// RatingFilter scopes rating listings.
type RatingFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}
