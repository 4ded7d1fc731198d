package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise-api/internal/models"
)

type recapStudentStub struct {
	students []models.Student
}

func (s *recapStudentStub) ListAll(ctx context.Context) ([]models.Student, error) {
	return s.students, nil
}

type recapRatingStub struct {
	ratings []models.Rating
}

func (s *recapRatingStub) ListSince(ctx context.Context, start *time.Time) ([]models.Rating, error) {
	if start == nil {
		return s.ratings, nil
	}
	result := []models.Rating{}
	for _, rating := range s.ratings {
		if !rating.Date.Before(*start) {
			result = append(result, rating)
		}
	}
	return result, nil
}

type recapAttendanceStub struct {
	records []models.Attendance
}

func (s *recapAttendanceStub) ListSince(ctx context.Context, start *time.Time) ([]models.Attendance, error) {
	if start == nil {
		return s.records, nil
	}
	result := []models.Attendance{}
	for _, record := range s.records {
		if !record.Date.Before(*start) {
			result = append(result, record)
		}
	}
	return result, nil
}

func (s *recapAttendanceStub) MarkNoCheckout(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type recapPointStub struct {
	totals map[string]int
}

func (s *recapPointStub) TotalsSince(ctx context.Context, start *time.Time) (map[string]int, error) {
	return s.totals, nil
}

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func newRecapFixture(students []models.Student, ratings []models.Rating, attendance []models.Attendance, totals map[string]int) *RecapService {
	cache := NewCacheService(nil, nil, time.Minute, nil, false)
	svc := NewRecapService(
		&recapStudentStub{students: students},
		&recapRatingStub{ratings: ratings},
		&recapAttendanceStub{records: attendance},
		&recapPointStub{totals: totals},
		&categoryRepoStub{categories: defaultCategories()},
		cache,
		time.Minute,
		nil,
	)
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestAggregateComputesAverages(t *testing.T) {
	students := []models.Student{{ID: "s1", Name: "Andi"}}
	ratings := []models.Rating{
		{StudentID: "s1", Date: day(2), Scores: models.ScoreMap{"discipline": 5, "teamwork": 3, "att": 5}},
		{StudentID: "s1", Date: day(3), Scores: models.ScoreMap{"discipline": 4}},
	}
	attendance := []models.Attendance{
		{StudentID: "s1", Date: day(1), Status: models.AttendanceStatusAbsent},
		{StudentID: "s1", Date: day(2), Status: models.AttendanceStatusPresent},
		{StudentID: "s1", Date: day(3), Status: models.AttendanceStatusLate},
	}

	entries := Aggregate(students, ratings, attendance, map[string]int{"s1": 7}, defaultCategories())
	require.Len(t, entries, 1)
	entry := entries[0]

	// Day one averages (5+3+5)/3, day two is 4.
	dayOne := (5.0 + 3.0 + 5.0) / 3.0
	assert.InDelta(t, (dayOne+4.0)/2.0, entry.OverallAverage, 1e-9)
	assert.Equal(t, 2, entry.TotalRatings)
	assert.Equal(t, 7, entry.TotalPoints)
	assert.Equal(t, 2, entry.DaysPresent)
	assert.InDelta(t, 2.0/3.0*100, entry.AttendancePercentage, 1e-9)
	assert.InDelta(t, 4.5, entry.CategoryAverages["discipline"].Average, 1e-9)
	assert.InDelta(t, 3.0, entry.CategoryAverages["teamwork"].Average, 1e-9)
	require.Len(t, entry.DailyAverages, 2)
	assert.Equal(t, "2026-03-02", entry.DailyAverages[0].Date)
}

func TestAggregateCountsEmptyScoreMapsAsZero(t *testing.T) {
	students := []models.Student{{ID: "s1", Name: "Andi"}}
	ratings := []models.Rating{
		{StudentID: "s1", Date: day(2), Scores: models.ScoreMap{}},
		{StudentID: "s1", Date: day(3), Scores: models.ScoreMap{"discipline": 4}},
	}

	entries := Aggregate(students, ratings, nil, nil, defaultCategories())
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].TotalRatings)
	assert.InDelta(t, 2.0, entries[0].OverallAverage, 1e-9)
	require.Len(t, entries[0].DailyAverages, 2)
	assert.Equal(t, 0.0, entries[0].DailyAverages[0].Average)
	assert.NotContains(t, entries[0].CategoryAverages, "teamwork")
}

func TestRecapOrdersByAverageWithStableTies(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Name: "Andi"},
		{ID: "s2", Name: "Budi"},
		{ID: "s3", Name: "Citra"},
	}
	ratings := []models.Rating{
		{StudentID: "s1", Date: day(2), Scores: models.ScoreMap{"discipline": 3}},
		{StudentID: "s2", Date: day(2), Scores: models.ScoreMap{"discipline": 5}},
		{StudentID: "s3", Date: day(2), Scores: models.ScoreMap{"discipline": 3}},
	}
	svc := newRecapFixture(students, ratings, nil, nil)

	entries, err := svc.Recap(context.Background(), models.PeriodAllTime)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Budi", entries[0].StudentName)
	// Tied students keep roster order.
	assert.Equal(t, "Andi", entries[1].StudentName)
	assert.Equal(t, "Citra", entries[2].StudentName)
}

func TestRecapWeeklyWindowStartsMonday(t *testing.T) {
	students := []models.Student{{ID: "s1", Name: "Andi"}}
	ratings := []models.Rating{
		// Sunday March 1st falls outside a week evaluated on Wednesday the 4th.
		{StudentID: "s1", Date: day(1), Scores: models.ScoreMap{"discipline": 1}},
		{StudentID: "s1", Date: day(3), Scores: models.ScoreMap{"discipline": 5}},
	}
	svc := newRecapFixture(students, ratings, nil, nil)

	entries, err := svc.Recap(context.Background(), models.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].TotalRatings)
	assert.InDelta(t, 5.0, entries[0].OverallAverage, 1e-9)
}

func TestLeaderboardExcludesInactiveStudents(t *testing.T) {
	students := []models.Student{
		{ID: "s1", Name: "Andi"},
		{ID: "s2", Name: "Budi"},
		{ID: "s3", Name: "Citra"},
	}
	ratings := []models.Rating{
		{StudentID: "s1", Date: day(3), Scores: models.ScoreMap{"discipline": 4}},
	}
	totals := map[string]int{"s2": 10}
	svc := newRecapFixture(students, ratings, nil, totals)

	board, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "Budi", board[0].StudentName)
	assert.InDelta(t, 10.0, board[0].Score, 1e-9)
	assert.Equal(t, "Andi", board[1].StudentName)
	assert.InDelta(t, 4.0, board[1].Score, 1e-9)
}

func TestExportDatasetFormatsValues(t *testing.T) {
	entries := []models.RecapEntry{
		{
			StudentName:          "Andi",
			OverallAverage:       (5.0 + 3.0 + 5.0) / 3.0,
			TotalRatings:         3,
			TotalPoints:          7,
			AttendancePercentage: 2.0 / 3.0 * 100,
			CategoryAverages: map[string]models.CategoryAverage{
				"discipline": {Name: "Discipline", Average: 4.5},
			},
		},
		{StudentName: "Budi"},
	}

	dataset := BuildExportDataset(entries, defaultCategories())
	require.Len(t, dataset.Rows, 2)

	assert.Equal(t, []string{
		"Student Name", "Total Points", "Overall Rating Avg.", "Total Ratings",
		"Attendance (%)", "Attendance Avg.", "Discipline Avg.", "Teamwork Avg.",
	}, dataset.Headers)

	andi := dataset.Rows[0]
	assert.Equal(t, "4.33", andi["Overall Rating Avg."])
	assert.Equal(t, "66.7", andi["Attendance (%)"])
	assert.Equal(t, "4.50", andi["Discipline Avg."])
	assert.Equal(t, "N/A", andi["Teamwork Avg."])

	budi := dataset.Rows[1]
	assert.Equal(t, "N/A", budi["Overall Rating Avg."])
	assert.Equal(t, "0", budi["Total Points"])
}

func TestExportCSVFilename(t *testing.T) {
	svc := newRecapFixture([]models.Student{}, nil, nil, nil)

	file, err := svc.ExportCSV(context.Background(), models.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, "recap_weekly_2026-03-04.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.NotEmpty(t, file.Data)
}
