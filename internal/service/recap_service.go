package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/gradewise/gradewise-api/internal/models"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
	"github.com/gradewise/gradewise-api/pkg/export"
)

type recapStudentRepository interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type recapRatingRepository interface {
	ListSince(ctx context.Context, start *time.Time) ([]models.Rating, error)
}

type recapAttendanceRepository interface {
	ListSince(ctx context.Context, start *time.Time) ([]models.Attendance, error)
	MarkNoCheckout(ctx context.Context, before time.Time) (int64, error)
}

type recapPointRepository interface {
	TotalsSince(ctx context.Context, start *time.Time) (map[string]int, error)
}

type recapCategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
}

// RecapService assembles per-student summaries, the leaderboard and the
// downloadable exports.
type RecapService struct {
	students       recapStudentRepository
	ratings        recapRatingRepository
	attendance     recapAttendanceRepository
	points         recapPointRepository
	categories     recapCategoryRepository
	cache          *CacheService
	csv            *export.CSVExporter
	pdf            *export.PDFExporter
	leaderboardTTL time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewRecapService constructs the recap service.
func NewRecapService(students recapStudentRepository, ratings recapRatingRepository, attendance recapAttendanceRepository, points recapPointRepository, categories recapCategoryRepository, cache *CacheService, leaderboardTTL time.Duration, logger *zap.Logger) *RecapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if leaderboardTTL <= 0 {
		leaderboardTTL = 5 * time.Minute
	}
	return &RecapService{
		students:       students,
		ratings:        ratings,
		attendance:     attendance,
		points:         points,
		categories:     categories,
		cache:          cache,
		csv:            export.NewCSVExporter(),
		pdf:            export.NewPDFExporter(),
		leaderboardTTL: leaderboardTTL,
		logger:         logger,
		now:            time.Now,
	}
}

// Recap builds the ranked per-student summary for a period. Entries are
// ordered by overall average descending; ties keep alphabetical order.
func (s *RecapService) Recap(ctx context.Context, period models.Period) ([]models.RecapEntry, error) {
	if !period.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period must be weekly, monthly or all-time")
	}
	if _, err := s.attendance.MarkNoCheckout(ctx, dayOf(s.now())); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle open days")
	}

	start := period.Start(s.now())

	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	ratings, err := s.ratings.ListSince(ctx, start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	attendance, err := s.attendance.ListSince(ctx, start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	pointTotals, err := s.points.TotalsSince(ctx, start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total points")
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}

	entries := Aggregate(students, ratings, attendance, pointTotals, categories)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OverallAverage > entries[j].OverallAverage
	})
	return entries, nil
}

// Aggregate folds raw rows into per-student recap entries. Pure so the
// rollup rules can be tested without a store.
func Aggregate(students []models.Student, ratings []models.Rating, attendance []models.Attendance, pointTotals map[string]int, categories []models.Category) []models.RecapEntry {
	type rollup struct {
		scoreSums    map[string]int
		scoreCounts  map[string]int
		daySum       float64
		dayCount     int
		daily        []models.DailyAverage
		attended     int
		recordedDays int
	}
	rollups := map[string]*rollup{}
	get := func(studentID string) *rollup {
		r, ok := rollups[studentID]
		if !ok {
			r = &rollup{scoreSums: map[string]int{}, scoreCounts: map[string]int{}}
			rollups[studentID] = r
		}
		return r
	}

	// Every rating row counts as a rated day. An empty score map (including
	// one degraded from a malformed stored payload) contributes a zero daily
	// average and no category samples.
	for _, rating := range ratings {
		r := get(rating.StudentID)
		for categoryID, score := range rating.Scores {
			r.scoreSums[categoryID] += score
			r.scoreCounts[categoryID]++
		}
		avg := rating.Scores.Average()
		r.daySum += avg
		r.dayCount++
		r.daily = append(r.daily, models.DailyAverage{
			Date:    rating.Date.Format(models.DateLayout),
			Average: avg,
		})
	}

	for _, record := range attendance {
		r := get(record.StudentID)
		r.recordedDays++
		if record.Status.Attended() {
			r.attended++
		}
	}

	entries := make([]models.RecapEntry, 0, len(students))
	for _, student := range students {
		entry := models.RecapEntry{
			StudentID:        student.ID,
			StudentName:      student.Name,
			PhotoURL:         student.PhotoURL,
			TotalPoints:      pointTotals[student.ID],
			CategoryAverages: map[string]models.CategoryAverage{},
		}
		if r, ok := rollups[student.ID]; ok {
			if r.dayCount > 0 {
				entry.OverallAverage = r.daySum / float64(r.dayCount)
			}
			entry.TotalRatings = r.dayCount
			entry.DailyAverages = r.daily
			entry.DaysPresent = r.attended
			if r.recordedDays > 0 {
				entry.AttendancePercentage = float64(r.attended) / float64(r.recordedDays) * 100
			}
			for _, category := range categories {
				if count := r.scoreCounts[category.ID]; count > 0 {
					entry.CategoryAverages[category.ID] = models.CategoryAverage{
						Name:    category.Name,
						Average: float64(r.scoreSums[category.ID]) / float64(count),
					}
				}
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// LeaderboardEntry is one ranked row of the weekly leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Average     float64 `json:"average"`
	Points      int     `json:"points"`
	Score       float64 `json:"score"`
}

const leaderboardCacheKey = "leaderboard:weekly"

// Leaderboard ranks students for the current week by blended score, average
// plus signed points. Students with no ratings and no points are excluded.
// The result is cached.
func (s *RecapService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var cached []LeaderboardEntry
	if hit, err := s.cache.Get(ctx, leaderboardCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	entries, err := s.Recap(ctx, models.PeriodWeekly)
	if err != nil {
		return nil, err
	}

	board := make([]LeaderboardEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.TotalRatings == 0 && entry.TotalPoints == 0 {
			continue
		}
		board = append(board, LeaderboardEntry{
			StudentID:   entry.StudentID,
			StudentName: entry.StudentName,
			PhotoURL:    entry.PhotoURL,
			Average:     entry.OverallAverage,
			Points:      entry.TotalPoints,
			Score:       entry.OverallAverage + float64(entry.TotalPoints),
		})
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	for i := range board {
		board[i].Rank = i + 1
	}

	if err := s.cache.Set(ctx, leaderboardCacheKey, board, s.leaderboardTTL); err != nil {
		s.logger.Warn("leaderboard cache write failed", zap.Error(err))
	}
	return board, nil
}

// InvalidateLeaderboard drops the cached leaderboard after writes that
// change scores or points.
func (s *RecapService) InvalidateLeaderboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, leaderboardCacheKey); err != nil {
		s.logger.Warn("leaderboard cache invalidate failed", zap.Error(err))
	}
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportCSV renders the recap for a period as a CSV download.
func (s *RecapService) ExportCSV(ctx context.Context, period models.Period) (*ExportFile, error) {
	dataset, err := s.exportDataset(ctx, period)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("recap_%s_%s.csv", period, s.now().Format(models.DateLayout)),
		ContentType: "text/csv",
		Data:        data,
	}, nil
}

// ExportPDF renders the recap for a period as a PDF download.
func (s *RecapService) ExportPDF(ctx context.Context, period models.Period) (*ExportFile, error) {
	dataset, err := s.exportDataset(ctx, period)
	if err != nil {
		return nil, err
	}
	title := fmt.Sprintf("Student Recap (%s)", period)
	data, err := s.pdf.Render(*dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("recap_%s_%s.pdf", period, s.now().Format(models.DateLayout)),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

func (s *RecapService) exportDataset(ctx context.Context, period models.Period) (*export.Dataset, error) {
	entries, err := s.Recap(ctx, period)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return BuildExportDataset(entries, categories), nil
}

// BuildExportDataset shapes recap entries into the tabular export layout.
// Students with no ratings in the window export as N/A rather than a
// misleading zero average.
func BuildExportDataset(entries []models.RecapEntry, categories []models.Category) *export.Dataset {
	headers := []string{"Student Name", "Total Points", "Overall Rating Avg.", "Total Ratings", "Attendance (%)"}
	for _, category := range categories {
		headers = append(headers, category.Name+" Avg.")
	}

	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		row := map[string]string{
			"Student Name":  entry.StudentName,
			"Total Points":  fmt.Sprintf("%d", entry.TotalPoints),
			"Total Ratings": fmt.Sprintf("%d", entry.TotalRatings),
		}
		if entry.TotalRatings > 0 {
			row["Overall Rating Avg."] = fmt.Sprintf("%.2f", entry.OverallAverage)
		} else {
			row["Overall Rating Avg."] = "N/A"
		}
		row["Attendance (%)"] = fmt.Sprintf("%.1f", entry.AttendancePercentage)
		for _, category := range categories {
			header := category.Name + " Avg."
			if avg, ok := entry.CategoryAverages[category.ID]; ok {
				row[header] = fmt.Sprintf("%.2f", avg.Average)
			} else {
				row[header] = "N/A"
			}
		}
		rows = append(rows, row)
	}
	return &export.Dataset{Headers: headers, Rows: rows}
}
