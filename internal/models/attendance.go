package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent    AttendanceStatus = "present"
	AttendanceStatusLate       AttendanceStatus = "late"
	AttendanceStatusSick       AttendanceStatus = "sick"
	AttendanceStatusPermit     AttendanceStatus = "permit"
	AttendanceStatusAbsent     AttendanceStatus = "absent"
	AttendanceStatusNoCheckout AttendanceStatus = "no_checkout"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusSick,
		AttendanceStatusPermit, AttendanceStatusAbsent, AttendanceStatusNoCheckout:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts toward attendance percentage.
func (s AttendanceStatus) Attended() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// Excused reports whether the status is a student-filed absence report that
// teacher bulk marking must not overwrite.
func (s AttendanceStatus) Excused() bool {
	return s == AttendanceStatusSick || s == AttendanceStatusPermit
}

// Attendance is the single record per (student, calendar day).
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CheckIn   *time.Time       `db:"check_in" json:"check_in,omitempty"`
	CheckOut  *time.Time       `db:"check_out" json:"check_out,omitempty"`
	Reason    *string          `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listings.
type AttendanceFilter struct {
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
}
