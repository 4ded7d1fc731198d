package models

import "time"

// Position is a class role a student can hold (e.g. class captain).
type Position struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
