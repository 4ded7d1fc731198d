package models

import (
	"fmt"
	"time"
)

// Settings is the single process-wide configuration row read by the
// attendance deriver and the check-in flow.
type Settings struct {
	ID            int       `db:"id" json:"-"`
	SchoolName    string    `db:"school_name" json:"school_name"`
	SchoolLogoURL string    `db:"school_logo_url" json:"school_logo_url"`
	Latitude      float64   `db:"latitude" json:"latitude"`
	Longitude     float64   `db:"longitude" json:"longitude"`
	CheckInRadius float64   `db:"check_in_radius" json:"check_in_radius"`
	LateTime      string    `db:"late_time" json:"late_time"`
	CheckOutTime  string    `db:"check_out_time" json:"check_out_time"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// TimeOfDayOn combines an HH:MM wall-clock value with the calendar date of
// the reference time, in the reference's location.
func TimeOfDayOn(hhmm string, ref time.Time) (time.Time, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", hhmm, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return time.Time{}, fmt.Errorf("time of day %q out of range", hhmm)
	}
	return time.Date(ref.Year(), ref.Month(), ref.Day(), h, m, 0, 0, ref.Location()), nil
}
