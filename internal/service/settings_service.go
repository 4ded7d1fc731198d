package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gradewise/gradewise-api/internal/models"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
)

type settingsRepository interface {
	Get(ctx context.Context) (*models.Settings, error)
	Seed(ctx context.Context, settings *models.Settings) error
	Update(ctx context.Context, settings *models.Settings) (*models.Settings, error)
}

// SettingsService manages the single school configuration row.
type SettingsService struct {
	settings  settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the settings service.
func NewSettingsService(settings settingsRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{settings: settings, validator: validate, logger: logger}
}

// UpdateSettingsRequest carries the editable school configuration.
type UpdateSettingsRequest struct {
	SchoolName    string  `json:"school_name" validate:"required"`
	SchoolLogoURL string  `json:"school_logo_url" validate:"omitempty,url"`
	Latitude      float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude     float64 `json:"longitude" validate:"min=-180,max=180"`
	CheckInRadius float64 `json:"check_in_radius" validate:"required,gt=0"`
	LateTime      string  `json:"late_time" validate:"required"`
	CheckOutTime  string  `json:"check_out_time" validate:"required"`
}

// Seed inserts the configured defaults on first boot, leaving an existing
// row untouched.
func (s *SettingsService) Seed(ctx context.Context, defaults *models.Settings) error {
	if err := s.settings.Seed(ctx, defaults); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed settings")
	}
	return nil
}

// Get returns the school settings.
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update rewrites the school settings. Wall-clock fields must parse so a
// typo cannot break the next morning's check-ins.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*models.Settings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	now := time.Now()
	if _, err := models.TimeOfDayOn(req.LateTime, now); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "late_time must be HH:MM")
	}
	if _, err := models.TimeOfDayOn(req.CheckOutTime, now); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "check_out_time must be HH:MM")
	}

	stored, err := s.settings.Update(ctx, &models.Settings{
		SchoolName:    req.SchoolName,
		SchoolLogoURL: req.SchoolLogoURL,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CheckInRadius: req.CheckInRadius,
		LateTime:      req.LateTime,
		CheckOutTime:  req.CheckOutTime,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	return stored, nil
}
