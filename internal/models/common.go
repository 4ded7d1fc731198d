package models

import "time"

// DateLayout is the canonical calendar-day format used across the API.
const DateLayout = "2006-01-02"

// Pagination captures list metadata returned alongside collections.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Period identifies a recap reporting window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all-time"
)

// Valid returns true when the period is a supported value.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	default:
		return false
	}
}

// Start returns the inclusive lower bound of the period relative to now, or
// nil for the unbounded all-time window. Weeks start on Monday.
func (p Period) Start(now time.Time) *time.Time {
	switch p {
	case PeriodWeekly:
		day := now
		for day.Weekday() != time.Monday {
			day = day.AddDate(0, 0, -1)
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
		return &start
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return &start
	default:
		return nil
	}
}
