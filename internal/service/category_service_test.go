package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise-api/internal/models"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
)

type categoryStoreStub struct {
	categories map[string]models.Category
}

func (s *categoryStoreStub) List(ctx context.Context) ([]models.Category, error) {
	result := []models.Category{}
	for _, category := range s.categories {
		result = append(result, category)
	}
	return result, nil
}

func (s *categoryStoreStub) Get(ctx context.Context, id string) (*models.Category, error) {
	if category, ok := s.categories[id]; ok {
		copied := category
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *categoryStoreStub) GetAttendance(ctx context.Context) (*models.Category, error) {
	for _, category := range s.categories {
		if category.IsSystem() {
			copied := category
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *categoryStoreStub) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if s.categories == nil {
		s.categories = make(map[string]models.Category)
	}
	if category.ID == "" {
		category.ID = category.Name
	}
	s.categories[category.ID] = *category
	return category, nil
}

func (s *categoryStoreStub) Rename(ctx context.Context, id, name string) (*models.Category, error) {
	category, ok := s.categories[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	category.Name = name
	s.categories[id] = category
	return &category, nil
}

func (s *categoryStoreStub) Delete(ctx context.Context, id string) error {
	delete(s.categories, id)
	return nil
}

type categoryRatingStub struct {
	ratings map[string]models.Rating
}

func (s *categoryRatingStub) ListWithCategory(ctx context.Context, categoryID string) ([]models.Rating, error) {
	result := []models.Rating{}
	for _, rating := range s.ratings {
		if _, ok := rating.Scores[categoryID]; ok {
			result = append(result, rating)
		}
	}
	return result, nil
}

func (s *categoryRatingStub) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, error) {
	s.ratings[rating.ID] = *rating
	return rating, nil
}

func newCategoryFixture() (*CategoryService, *categoryStoreStub, *categoryRatingStub) {
	categories := &categoryStoreStub{categories: map[string]models.Category{
		"att":        {ID: "att", Name: "Attendance", Kind: models.CategoryKindAttendance},
		"discipline": {ID: "discipline", Name: "Discipline", Kind: models.CategoryKindManual},
	}}
	ratings := &categoryRatingStub{ratings: map[string]models.Rating{}}
	return NewCategoryService(categories, ratings, nil, nil), categories, ratings
}

func TestDeleteSystemCategoryRejected(t *testing.T) {
	svc, _, _ := newCategoryFixture()

	err := svc.Delete(context.Background(), "att")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSystemCategory.Code, appErr.Code)
}

func TestRenameSystemCategoryRejected(t *testing.T) {
	svc, _, _ := newCategoryFixture()

	_, err := svc.Rename(context.Background(), "att", CategoryRequest{Name: "Punctuality"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrSystemCategory.Code, appErr.Code)
}

func TestDeleteCategoryStripsScoresAndRecomputes(t *testing.T) {
	svc, categories, ratings := newCategoryFixture()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	ratings.ratings["s1-2026-03-02"] = models.Rating{
		ID: "s1-2026-03-02", StudentID: "s1", Date: date,
		Scores:  models.ScoreMap{"discipline": 2, "att": 5},
		Average: 3.5,
	}

	err := svc.Delete(context.Background(), "discipline")
	require.NoError(t, err)

	_, exists := categories.categories["discipline"]
	assert.False(t, exists)
	rewritten := ratings.ratings["s1-2026-03-02"]
	_, hasKey := rewritten.Scores["discipline"]
	assert.False(t, hasKey)
	assert.InDelta(t, 5.0, rewritten.Average, 1e-9)
}

func TestSeedAttendanceCategoryIsIdempotent(t *testing.T) {
	svc, categories, _ := newCategoryFixture()

	require.NoError(t, svc.SeedAttendanceCategory(context.Background()))
	assert.Len(t, categories.categories, 2)

	delete(categories.categories, "att")
	require.NoError(t, svc.SeedAttendanceCategory(context.Background()))
	found := false
	for _, category := range categories.categories {
		if category.IsSystem() {
			found = true
		}
	}
	assert.True(t, found)
}
