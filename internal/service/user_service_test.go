package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gradewise/gradewise-api/internal/models"
	appErrors "github.com/gradewise/gradewise-api/pkg/errors"
)

type userStoreStub struct {
	users map[string]models.User
}

func (s *userStoreStub) List(ctx context.Context) ([]models.User, error) {
	result := []models.User{}
	for _, user := range s.users {
		result = append(result, user)
	}
	return result, nil
}

func (s *userStoreStub) Get(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		copied := user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) Count(ctx context.Context) (int, error) {
	return len(s.users), nil
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.users == nil {
		s.users = make(map[string]models.User)
	}
	if user.ID == "" {
		user.ID = user.Email
	}
	s.users[user.ID] = *user
	return user, nil
}

func (s *userStoreStub) Update(ctx context.Context, user *models.User) (*models.User, error) {
	s.users[user.ID] = *user
	return user, nil
}

func (s *userStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	return nil
}

func TestDeleteLastTeacherRejected(t *testing.T) {
	store := &userStoreStub{users: map[string]models.User{
		"u1": {ID: "u1", Name: "Ibu Sari", Email: "sari@example.com"},
	}}
	svc := NewUserService(store, nil, nil)

	err := svc.Delete(context.Background(), "u1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrLastTeacher.Code, appErr.Code)
	assert.Len(t, store.users, 1)
}

func TestDeleteTeacherWithOthersRemaining(t *testing.T) {
	store := &userStoreStub{users: map[string]models.User{
		"u1": {ID: "u1", Email: "sari@example.com"},
		"u2": {ID: "u2", Email: "budi@example.com"},
	}}
	svc := NewUserService(store, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "u1"))
	assert.Len(t, store.users, 1)
}

func TestCreateTeacherRejectsDuplicateEmail(t *testing.T) {
	store := &userStoreStub{users: map[string]models.User{
		"u1": {ID: "u1", Email: "sari@example.com"},
	}}
	svc := NewUserService(store, nil, nil)

	_, err := svc.Create(context.Background(), CreateUserRequest{
		Name: "Sari", Email: "sari@example.com", Password: "supersecret",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
}

func TestCreateTeacherHashesPassword(t *testing.T) {
	store := &userStoreStub{}
	svc := NewUserService(store, nil, nil)

	stored, err := svc.Create(context.Background(), CreateUserRequest{
		Name: "Sari", Email: "sari@example.com", Password: "supersecret",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "supersecret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("supersecret")))
}
