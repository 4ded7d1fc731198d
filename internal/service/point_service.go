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

type pointRecordRepository interface {
	Create(ctx context.Context, record *models.PointRecord) (*models.PointRecord, error)
	List(ctx context.Context, filter models.PointRecordFilter) ([]models.PointRecord, error)
	Delete(ctx context.Context, id string) error
}

type leaderboardInvalidator interface {
	InvalidateLeaderboard(ctx context.Context)
}

// PointService manages award and violation point entries.
type PointService struct {
	points    pointRecordRepository
	board     leaderboardInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPointService constructs the point service. The invalidator may be nil.
func NewPointService(points pointRecordRepository, board leaderboardInvalidator, validate *validator.Validate, logger *zap.Logger) *PointService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PointService{points: points, board: board, validator: validate, logger: logger}
}

// CreatePointRequest is the award or violation payload.
type CreatePointRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=award violation"`
	Points      int    `json:"points" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"required"`
}

// Create records a point entry for a student, attributed to the acting
// teacher.
func (s *PointService) Create(ctx context.Context, teacherID string, req CreatePointRequest) (*models.PointRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	record := &models.PointRecord{
		StudentID:   req.StudentID,
		Date:        date,
		Type:        models.PointRecordType(req.Type),
		Points:      req.Points,
		Description: req.Description,
		TeacherID:   teacherID,
	}
	stored, err := s.points.Create(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create point record")
	}
	if s.board != nil {
		s.board.InvalidateLeaderboard(ctx)
	}
	return stored, nil
}

// List returns point records matching the filter.
func (s *PointService) List(ctx context.Context, filter models.PointRecordFilter) ([]models.PointRecord, error) {
	rows, err := s.points.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list point records")
	}
	return rows, nil
}

// Delete removes a point record.
func (s *PointService) Delete(ctx context.Context, id string) error {
	if err := s.points.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "point record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete point record")
	}
	if s.board != nil {
		s.board.InvalidateLeaderboard(ctx)
	}
	return nil
}
