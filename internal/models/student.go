package models

import "time"

// Student represents a learner registered at the school.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	ParentPhone  *string   `db:"parent_phone" json:"parent_phone,omitempty"`
	Address      *string   `db:"address" json:"address,omitempty"`
	PhotoURL     *string   `db:"photo_url" json:"photo_url,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	PositionID   *string   `db:"position_id" json:"position_id,omitempty"`
	DeviceID     *string   `db:"device_id" json:"device_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	PositionID string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
