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

type categoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	GetAttendance(ctx context.Context) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) (*models.Category, error)
	Rename(ctx context.Context, id, name string) (*models.Category, error)
	Delete(ctx context.Context, id string) error
}

type categoryRatingRepository interface {
	ListWithCategory(ctx context.Context, categoryID string) ([]models.Rating, error)
	Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error)
}

// CategoryService manages rating categories, including the reserved
// attendance category that teachers cannot touch.
type CategoryService struct {
	categories categoryRepository
	ratings    categoryRatingRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCategoryService constructs the category service.
func NewCategoryService(categories categoryRepository, ratings categoryRatingRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, ratings: ratings, validator: validate, logger: logger}
}

// CategoryRequest carries a category name.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=64"`
}

// SeedAttendanceCategory inserts the system attendance category on first
// boot and is a no-op afterwards.
func (s *CategoryService) SeedAttendanceCategory(ctx context.Context) error {
	_, err := s.categories.GetAttendance(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance category")
	}
	if _, err := s.categories.Create(ctx, &models.Category{
		Name: "Attendance",
		Kind: models.CategoryKindAttendance,
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed attendance category")
	}
	s.logger.Info("seeded attendance category")
	return nil
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.categories.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return rows, nil
}

// Create adds a manual category.
func (s *CategoryService) Create(ctx context.Context, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	stored, err := s.categories.Create(ctx, &models.Category{Name: req.Name, Kind: models.CategoryKindManual})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return stored, nil
}

// Rename updates a manual category's name. The attendance category keeps
// its name.
func (s *CategoryService) Rename(ctx context.Context, id string, req CategoryRequest) (*models.Category, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	category, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if category.IsSystem() {
		return nil, appErrors.Clone(appErrors.ErrSystemCategory, "the attendance category cannot be renamed")
	}
	stored, err := s.categories.Rename(ctx, id, req.Name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename category")
	}
	return stored, nil
}

// Delete removes a manual category and strips its scores from every rating,
// recomputing affected averages. The attendance category cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	category, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if category.IsSystem() {
		return appErrors.Clone(appErrors.ErrSystemCategory, "the attendance category cannot be deleted")
	}

	affected, err := s.ratings.ListWithCategory(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find affected ratings")
	}
	for i := range affected {
		rating := affected[i]
		delete(rating.Scores, id)
		rating.Average = rating.Scores.Average()
		if _, err := s.ratings.Upsert(ctx, &rating); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rewrite rating")
		}
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	s.logger.Info("deleted category", zap.String("category_id", id), zap.Int("ratings_rewritten", len(affected)))
	return nil
}

func (s *CategoryService) get(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return category, nil
}
