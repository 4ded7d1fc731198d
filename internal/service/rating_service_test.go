package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise-api/internal/models"
)

type ratingRepoStub struct {
	items map[string]models.Rating
}

func (s *ratingRepoStub) key(studentID string, date time.Time) string {
	return models.RatingID(studentID, date)
}

func (s *ratingRepoStub) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	if s.items == nil {
		s.items = make(map[string]models.Rating)
	}
	stored := *rating
	s.items[s.key(rating.StudentID, rating.Date)] = stored
	return &stored, nil
}

func (s *ratingRepoStub) GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Rating, error) {
	if rating, ok := s.items[s.key(studentID, date)]; ok {
		copied := rating
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *ratingRepoStub) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, error) {
	result := []models.Rating{}
	for _, rating := range s.items {
		if filter.StudentID == "" || rating.StudentID == filter.StudentID {
			result = append(result, rating)
		}
	}
	return result, nil
}

type attendanceRepoStub struct {
	items map[string]models.Attendance
}

func attendanceKey(studentID string, date time.Time) string {
	return studentID + "|" + date.Format(models.DateLayout)
}

func (s *attendanceRepoStub) GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error) {
	if record, ok := s.items[attendanceKey(studentID, date)]; ok {
		copied := record
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type categoryRepoStub struct {
	categories []models.Category
}

func (s *categoryRepoStub) List(ctx context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func (s *categoryRepoStub) GetAttendance(ctx context.Context) (*models.Category, error) {
	for _, category := range s.categories {
		if category.IsSystem() {
			copied := category
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

type settingsRepoStub struct {
	settings models.Settings
}

func (s *settingsRepoStub) Get(ctx context.Context) (*models.Settings, error) {
	copied := s.settings
	return &copied, nil
}

func defaultCategories() []models.Category {
	return []models.Category{
		{ID: "att", Name: "Attendance", Kind: models.CategoryKindAttendance},
		{ID: "discipline", Name: "Discipline", Kind: models.CategoryKindManual},
		{ID: "teamwork", Name: "Teamwork", Kind: models.CategoryKindManual},
	}
}

func newRatingFixture(attendance map[string]models.Attendance) (*RatingService, *ratingRepoStub) {
	ratings := &ratingRepoStub{}
	svc := NewRatingService(
		ratings,
		&attendanceRepoStub{items: attendance},
		&categoryRepoStub{categories: defaultCategories()},
		&settingsRepoStub{settings: models.Settings{LateTime: "07:00", CheckOutTime: "15:30"}},
		nil, nil,
	)
	return svc, ratings
}

func TestDeriveAttendanceScoreTiers(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	threshold := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	lateBy := func(delay time.Duration) *models.Attendance {
		checkIn := threshold.Add(delay)
		return &models.Attendance{Date: day, Status: models.AttendanceStatusLate, CheckIn: &checkIn}
	}
	onTime := threshold.Add(-10 * time.Minute)

	cases := []struct {
		name   string
		record *models.Attendance
		want   *int
	}{
		{"no record", nil, nil},
		{"present", &models.Attendance{Status: models.AttendanceStatusPresent, CheckIn: &onTime}, intPtr(5)},
		{"present without check-in", &models.Attendance{Status: models.AttendanceStatusPresent}, nil},
		{"sick", &models.Attendance{Status: models.AttendanceStatusSick}, intPtr(5)},
		{"permit", &models.Attendance{Status: models.AttendanceStatusPermit}, intPtr(5)},
		{"late 10 minutes", lateBy(10 * time.Minute), intPtr(4)},
		{"late 10m59s keeps the 10 minute tier", lateBy(10*time.Minute + 59*time.Second), intPtr(4)},
		{"late 11 minutes", lateBy(11 * time.Minute), intPtr(3)},
		{"late 30 minutes", lateBy(30 * time.Minute), intPtr(3)},
		{"late 30m59s keeps the 30 minute tier", lateBy(30*time.Minute + 59*time.Second), intPtr(3)},
		{"late 31 minutes", lateBy(31 * time.Minute), intPtr(1)},
		{"late without check-in", &models.Attendance{Status: models.AttendanceStatusLate}, nil},
		{"absent", &models.Attendance{Status: models.AttendanceStatusAbsent}, intPtr(0)},
		{"no checkout", &models.Attendance{Status: models.AttendanceStatusNoCheckout}, intPtr(0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveAttendanceScore(tc.record, threshold)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func TestRatingSaveMergesPartialScores(t *testing.T) {
	svc, ratings := newRatingFixture(nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, SaveRatingRequest{
		StudentID: "s1",
		Date:      "2026-03-02",
		Scores:    map[string]int{"discipline": 5, "teamwork": 3},
	})
	require.NoError(t, err)

	stored, err := svc.Save(ctx, SaveRatingRequest{
		StudentID: "s1",
		Date:      "2026-03-02",
		Scores:    map[string]int{"teamwork": 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, stored.Scores["discipline"])
	assert.Equal(t, 4, stored.Scores["teamwork"])
	assert.Len(t, ratings.items, 1)
}

func TestRatingSaveIncludesDerivedAttendanceScore(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	checkIn := time.Date(2026, 3, 2, 7, 20, 0, 0, time.UTC)
	attendance := map[string]models.Attendance{
		attendanceKey("s1", day): {
			StudentID: "s1", Date: day,
			Status: models.AttendanceStatusLate, CheckIn: &checkIn,
		},
	}
	svc, _ := newRatingFixture(attendance)

	stored, err := svc.Save(context.Background(), SaveRatingRequest{
		StudentID: "s1",
		Date:      "2026-03-02",
		Scores:    map[string]int{"discipline": 5, "teamwork": 5},
	})
	require.NoError(t, err)

	// 20 minutes late lands in the middle tier.
	assert.Equal(t, 3, stored.Scores["att"])
	assert.InDelta(t, (5.0+5.0+3.0)/3.0, stored.Average, 1e-9)
}

func TestRatingSaveIsIdempotent(t *testing.T) {
	svc, _ := newRatingFixture(nil)
	ctx := context.Background()
	req := SaveRatingRequest{
		StudentID: "s1",
		Date:      "2026-03-02",
		Scores:    map[string]int{"discipline": 5, "teamwork": 3},
	}

	first, err := svc.Save(ctx, req)
	require.NoError(t, err)
	second, err := svc.Save(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, first.Average, second.Average)
}

func TestRatingSaveRejectsUnknownCategory(t *testing.T) {
	svc, _ := newRatingFixture(nil)

	_, err := svc.Save(context.Background(), SaveRatingRequest{
		StudentID: "s1",
		Date:      "2026-03-02",
		Scores:    map[string]int{"ghost": 4},
	})
	require.Error(t, err)
}

func TestRatingSaveRejectsDirectAttendanceWrite(t *testing.T) {
	svc, _ := newRatingFixture(nil)

	_, err := svc.Save(context.Background(), SaveRatingRequest{
		StudentID: "s1",
		Date:      "2026-03-02",
		Scores:    map[string]int{"att": 5},
	})
	require.Error(t, err)
}

func TestSyncAttendanceScoreCreatesRating(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	checkIn := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	attendance := map[string]models.Attendance{
		attendanceKey("s1", day): {StudentID: "s1", Date: day, Status: models.AttendanceStatusPresent, CheckIn: &checkIn},
	}
	svc, ratings := newRatingFixture(attendance)

	err := svc.SyncAttendanceScore(context.Background(), "s1", day)
	require.NoError(t, err)

	stored, ok := ratings.items["s1-2026-03-02"]
	require.True(t, ok)
	assert.Equal(t, 5, stored.Scores["att"])
	assert.InDelta(t, 5.0, stored.Average, 1e-9)
}

func TestScoreMapAverageEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, models.ScoreMap{}.Average())
}
