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
	"github.com/gradewise/gradewise-api/pkg/geo"
)

type attendanceRepository interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
	MarkNoCheckout(ctx context.Context, before time.Time) (int64, error)
	BulkMark(ctx context.Context, studentIDs []string, date time.Time, status models.AttendanceStatus) error
}

type attendanceStudentRepository interface {
	Get(ctx context.Context, id string) (*models.Student, error)
	BindDevice(ctx context.Context, id, deviceID string) error
}

type attendanceSettingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type attendanceRatingSync interface {
	SyncAttendanceScore(ctx context.Context, studentID string, date time.Time) error
}

// AttendanceService drives the daily check-in and check-out state machine.
type AttendanceService struct {
	attendance attendanceRepository
	students   attendanceStudentRepository
	settings   attendanceSettingsRepository
	ratings    attendanceRatingSync
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(attendance attendanceRepository, students attendanceStudentRepository, settings attendanceSettingsRepository, ratings attendanceRatingSync, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		students:   students,
		settings:   settings,
		ratings:    ratings,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckInRequest is the student check-in payload.
type CheckInRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	DeviceID  string  `json:"device_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// CheckIn records a student's arrival. The student must be inside the school
// radius and on their bound device; the first check-in ever binds the device.
// Arrival after the late threshold yields a late status.
func (s *AttendanceService) CheckIn(ctx context.Context, req CheckInRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	distance := geo.Distance(req.Latitude, req.Longitude, settings.Latitude, settings.Longitude)
	if distance > settings.CheckInRadius {
		return nil, appErrors.Clone(appErrors.ErrOutOfRadius, "you are outside the school check-in radius")
	}

	student, err := s.students.Get(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.DeviceID == nil {
		if err := s.students.BindDevice(ctx, student.ID, req.DeviceID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bind device")
		}
	} else if *student.DeviceID != req.DeviceID {
		return nil, appErrors.Clone(appErrors.ErrDeviceMismatch, "check-in is bound to another device, ask a teacher to reset it")
	}

	now := s.now()
	day := dayOf(now)
	existing, err := s.attendance.GetByStudentDate(ctx, req.StudentID, day)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if existing != nil {
		if existing.CheckIn != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in today")
		}
		if existing.Status.Excused() {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReported, "an absence report already exists for today")
		}
	}

	threshold, err := models.TimeOfDayOn(settings.LateTime, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid late time setting")
	}
	status := models.AttendanceStatusPresent
	if now.After(threshold) {
		status = models.AttendanceStatusLate
	}

	record := &models.Attendance{StudentID: req.StudentID, Date: day, Status: status, CheckIn: &now}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	stored, err := s.attendance.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	if err := s.ratings.SyncAttendanceScore(ctx, req.StudentID, day); err != nil {
		s.logger.Warn("attendance score sync failed",
			zap.String("student_id", req.StudentID), zap.Error(err))
	}
	s.metrics.RecordCheckIn(stored.Status)
	return stored, nil
}

// CheckOut closes the day for a student who checked in. It only opens once
// the configured check-out time has passed.
func (s *AttendanceService) CheckOut(ctx context.Context, studentID string) (*models.Attendance, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	now := s.now()
	gate, err := models.TimeOfDayOn(settings.CheckOutTime, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid check-out time setting")
	}
	if now.Before(gate) {
		return nil, appErrors.Clone(appErrors.ErrCheckOutNotOpen, "check-out opens at "+settings.CheckOutTime)
	}

	day := dayOf(now)
	record, err := s.attendance.GetByStudentDate(ctx, studentID, day)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotCheckedIn, "no check-in recorded today")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if record.CheckIn == nil {
		return nil, appErrors.Clone(appErrors.ErrNotCheckedIn, "no check-in recorded today")
	}
	if record.CheckOut != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already checked out today")
	}

	record.CheckOut = &now
	stored, err := s.attendance.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-out")
	}
	return stored, nil
}

// ReportAbsenceRequest is the student absence report payload.
type ReportAbsenceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=sick permit"`
	Reason    string `json:"reason" validate:"required"`
}

// ReportAbsence files a sick or permit report for today. A day that already
// has a check-in or a report cannot be reported again.
func (s *AttendanceService) ReportAbsence(ctx context.Context, req ReportAbsenceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	day := dayOf(s.now())
	existing, err := s.attendance.GetByStudentDate(ctx, req.StudentID, day)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if existing != nil {
		if existing.CheckIn != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in today")
		}
		if existing.Status.Excused() {
			return nil, appErrors.Clone(appErrors.ErrAlreadyReported, "an absence report already exists for today")
		}
	}

	reason := req.Reason
	record := &models.Attendance{
		StudentID: req.StudentID,
		Date:      day,
		Status:    models.AttendanceStatus(req.Status),
		Reason:    &reason,
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	stored, err := s.attendance.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record absence report")
	}

	if err := s.ratings.SyncAttendanceScore(ctx, req.StudentID, day); err != nil {
		s.logger.Warn("attendance score sync failed",
			zap.String("student_id", req.StudentID), zap.Error(err))
	}
	return stored, nil
}

// OverrideStatusRequest is the teacher correction payload.
type OverrideStatusRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present late sick permit absent no_checkout"`
	Reason    string `json:"reason"`
}

// OverrideStatus lets a teacher set the status for any student day. The
// override clears recorded timestamps, since a corrected status no longer
// reflects the device-captured times.
func (s *AttendanceService) OverrideStatus(ctx context.Context, req OverrideStatusRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	record := &models.Attendance{
		StudentID: req.StudentID,
		Date:      date,
		Status:    models.AttendanceStatus(req.Status),
	}
	if req.Reason != "" {
		reason := req.Reason
		record.Reason = &reason
	}
	stored, err := s.attendance.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to override attendance")
	}

	if err := s.ratings.SyncAttendanceScore(ctx, req.StudentID, date); err != nil {
		s.logger.Warn("attendance score sync failed",
			zap.String("student_id", req.StudentID), zap.Error(err))
	}
	return stored, nil
}

// BulkMarkRequest marks many students on one day with a single status.
type BulkMarkRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1"`
	Date       string   `json:"date" validate:"required"`
	Status     string   `json:"status" validate:"required,oneof=present late sick permit absent"`
}

// BulkMark applies a status to many students at once without overwriting
// days a student already reported as sick or permit.
func (s *AttendanceService) BulkMark(ctx context.Context, req BulkMarkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	if err := s.attendance.BulkMark(ctx, req.StudentIDs, date, models.AttendanceStatus(req.Status)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk mark attendance")
	}
	for _, studentID := range req.StudentIDs {
		if err := s.ratings.SyncAttendanceScore(ctx, studentID, date); err != nil {
			s.logger.Warn("attendance score sync failed",
				zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return nil
}

// Today returns the attendance record for a student's current day, or nil
// when the day has no activity yet.
func (s *AttendanceService) Today(ctx context.Context, studentID string) (*models.Attendance, error) {
	record, err := s.attendance.GetByStudentDate(ctx, studentID, dayOf(s.now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	return record, nil
}

// List returns attendance records matching the filter. Past attended days
// that never checked out are rewritten to no_checkout first.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	if err := s.settleNoCheckout(ctx); err != nil {
		return nil, err
	}
	rows, err := s.attendance.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return rows, nil
}

// settleNoCheckout rewrites stale open days before reads, replacing a
// scheduled job that could miss days across restarts.
func (s *AttendanceService) settleNoCheckout(ctx context.Context) error {
	affected, err := s.attendance.MarkNoCheckout(ctx, dayOf(s.now()))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle open days")
	}
	if affected > 0 {
		s.logger.Info("settled days without checkout", zap.Int64("count", affected))
	}
	return nil
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
