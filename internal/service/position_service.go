package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradewise/gradewise-api/internal/models"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
)

type positionRepository interface {
	List(ctx context.Context) ([]models.Position, error)
	Get(ctx context.Context, id string) (*models.Position, error)
	Create(ctx context.Context, position *models.Position) (*models.Position, error)
	Rename(ctx context.Context, id, name string) (*models.Position, error)
	Delete(ctx context.Context, id string) error
}

type positionStudentRepository interface {
	ClearPosition(ctx context.Context, positionID string) error
}

// PositionService manages class positions.
type PositionService struct {
	positions positionRepository
	students  positionStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPositionService constructs the position service.
func NewPositionService(positions positionRepository, students positionStudentRepository, validate *validator.Validate, logger *zap.Logger) *PositionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionService{positions: positions, students: students, validator: validate, logger: logger}
}

// PositionRequest carries a position name.
type PositionRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

// List returns all positions.
func (s *PositionService) List(ctx context.Context) ([]models.Position, error) {
	rows, err := s.positions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list positions")
	}
	return rows, nil
}

// Create adds a position.
func (s *PositionService) Create(ctx context.Context, req PositionRequest) (*models.Position, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	stored, err := s.positions.Create(ctx, &models.Position{Name: req.Name})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create position")
	}
	return stored, nil
}

// Rename updates a position's name.
func (s *PositionService) Rename(ctx context.Context, id string, req PositionRequest) (*models.Position, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	stored, err := s.positions.Rename(ctx, id, req.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "position not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename position")
	}
	return stored, nil
}

// Delete removes a position and detaches every student holding it.
func (s *PositionService) Delete(ctx context.Context, id string) error {
	if _, err := s.positions.Get(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "position not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load position")
	}
	if err := s.students.ClearPosition(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to detach students")
	}
	if err := s.positions.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete position")
	}
	return nil
}
