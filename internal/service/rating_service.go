package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradewise/gradewise-api/internal/models"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
)

type ratingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error)
	GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Rating, error)
	List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, error)
}

type ratingAttendanceRepository interface {
	GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error)
}

type ratingCategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetAttendance(ctx context.Context) (*models.Category, error)
}

type ratingSettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// RatingService owns the daily score map: manual teacher scores merge into
// it and the attendance score is derived, never hand-written.
type RatingService struct {
	ratings    ratingRepository
	attendance ratingAttendanceRepository
	categories ratingCategoryRepository
	settings   ratingSettingsRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewRatingService constructs the rating service.
func NewRatingService(ratings ratingRepository, attendance ratingAttendanceRepository, categories ratingCategoryRepository, settings ratingSettingsRepository, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{
		ratings:    ratings,
		attendance: attendance,
		categories: categories,
		settings:   settings,
		validator:  validate,
		logger:     logger,
	}
}

// DeriveAttendanceScore maps an attendance record to its 0-5 score.
// Checked-in-on-time and excused days score 5; late arrivals tier down with
// the delay past the threshold; absences and missed checkouts score 0. A
// nil return (no record, or present/late without a check-in timestamp) means
// no score can be derived yet, so the caller must keep whatever value is
// already stored.
func DeriveAttendanceScore(record *models.Attendance, lateThreshold time.Time) *int {
	if record == nil {
		return nil
	}
	switch record.Status {
	case models.AttendanceStatusSick, models.AttendanceStatusPermit:
		return intPtr(5)
	case models.AttendanceStatusPresent:
		if record.CheckIn == nil {
			return nil
		}
		return intPtr(5)
	case models.AttendanceStatusLate:
		if record.CheckIn == nil {
			return nil
		}
		// Whole minutes only, so 10m59s still lands in the 10-minute tier.
		minutesLate := int(record.CheckIn.Sub(lateThreshold) / time.Minute)
		switch {
		case minutesLate <= 10:
			return intPtr(4)
		case minutesLate <= 30:
			return intPtr(3)
		default:
			return intPtr(1)
		}
	case models.AttendanceStatusAbsent, models.AttendanceStatusNoCheckout:
		return intPtr(0)
	default:
		return nil
	}
}

func intPtr(v int) *int {
	return &v
}

// SaveRatingRequest carries a teacher's manual scores for one student day.
// Scores are partial: categories not present keep their stored value.
type SaveRatingRequest struct {
	StudentID string         `json:"student_id" validate:"required"`
	Date      string         `json:"date" validate:"required"`
	Scores    map[string]int `json:"scores" validate:"dive,min=1,max=5"`
}

// Save merges the submitted manual scores into the stored day map, refreshes
// the derived attendance score and recomputes the average. Repeated saves of
// the same payload land on the same row and leave the same state.
func (s *RatingService) Save(ctx context.Context, req SaveRatingRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load categories")
	}
	manual := map[string]bool{}
	for _, category := range categories {
		if !category.IsSystem() {
			manual[category.ID] = true
		}
	}
	for categoryID := range req.Scores {
		if !manual[categoryID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown or non-manual category "+categoryID)
		}
	}

	rating, err := s.loadOrInit(ctx, req.StudentID, date)
	if err != nil {
		return nil, err
	}
	for categoryID, score := range req.Scores {
		rating.Scores[categoryID] = score
	}

	if err := s.applyAttendanceScore(ctx, rating); err != nil {
		return nil, err
	}

	rating.Average = rating.Scores.Average()
	stored, err := s.ratings.Upsert(ctx, rating)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
	}
	return stored, nil
}

// SyncAttendanceScore refreshes the derived attendance entry for a student
// day, creating the rating row when the day has activity but no manual
// scores yet. Called after every attendance transition.
func (s *RatingService) SyncAttendanceScore(ctx context.Context, studentID string, date time.Time) error {
	rating, err := s.loadOrInit(ctx, studentID, date)
	if err != nil {
		return err
	}
	if err := s.applyAttendanceScore(ctx, rating); err != nil {
		return err
	}
	rating.Average = rating.Scores.Average()
	if _, err := s.ratings.Upsert(ctx, rating); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync attendance score")
	}
	return nil
}

// Get returns the rating for one student day.
func (s *RatingService) Get(ctx context.Context, studentID, dateStr string) (*models.Rating, error) {
	date, err := time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	rating, err := s.ratings.GetByStudentDate(ctx, studentID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	return rating, nil
}

// List returns ratings matching the filter.
func (s *RatingService) List(ctx context.Context, filter models.RatingFilter) ([]models.Rating, error) {
	rows, err := s.ratings.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	return rows, nil
}

func (s *RatingService) loadOrInit(ctx context.Context, studentID string, date time.Time) (*models.Rating, error) {
	rating, err := s.ratings.GetByStudentDate(ctx, studentID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.Rating{
				ID:        models.RatingID(studentID, date),
				StudentID: studentID,
				Date:      date,
				Scores:    models.ScoreMap{},
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	if rating.Scores == nil {
		rating.Scores = models.ScoreMap{}
	}
	return rating, nil
}

// applyAttendanceScore writes the derived attendance score into the map when
// one can be derived, and leaves the stored value untouched otherwise.
func (s *RatingService) applyAttendanceScore(ctx context.Context, rating *models.Rating) error {
	attendanceCategory, err := s.categories.GetAttendance(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance category")
	}

	record, err := s.attendance.GetByStudentDate(ctx, rating.StudentID, rating.Date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			record = nil
		} else {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
		}
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	ref := rating.Date
	if record != nil && record.CheckIn != nil {
		ref = *record.CheckIn
	}
	threshold, err := models.TimeOfDayOn(settings.LateTime, ref)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid late time setting")
	}

	if score := DeriveAttendanceScore(record, threshold); score != nil {
		rating.Scores[attendanceCategory.ID] = *score
	}
	return nil
}
