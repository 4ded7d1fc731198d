package models

// CategoryAverage is the per-category rollup inside a recap entry.
type CategoryAverage struct {
	Name    string  `json:"name"`
	Average float64 `json:"average"`
}

// DailyAverage is one (date, average) point for charting.
type DailyAverage struct {
	Date    string  `json:"date"`
	Average float64 `json:"average"`
}

// RecapEntry is the per-student summary produced by the recap engine.
type RecapEntry struct {
	StudentID            string                     `json:"student_id"`
	StudentName          string                     `json:"student_name"`
	PhotoURL             *string                    `json:"photo_url,omitempty"`
	OverallAverage       float64                    `json:"overall_average"`
	CategoryAverages     map[string]CategoryAverage `json:"category_averages"`
	TotalRatings         int                        `json:"total_ratings"`
	TotalPoints          int                        `json:"total_points"`
	AttendancePercentage float64                    `json:"attendance_percentage"`
	DaysPresent          int                        `json:"days_present"`
	DailyAverages        []DailyAverage             `json:"daily_averages"`
}
