package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gradewise/gradewise-api/internal/models"
)

func newAuthFixture(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &userStoreStub{users: map[string]models.User{
		"u1": {ID: "u1", Name: "Ibu Sari", Email: "sari@example.com", PasswordHash: string(hash)},
	}}
	students := &studentStoreStub{students: map[string]models.Student{
		"s1": {ID: "s1", Name: "Andi", Email: "andi@example.com", PasswordHash: string(hash)},
	}}
	return NewAuthService(users, authStudentStub{students}, "test-secret", time.Hour, nil, nil)
}

type authStudentStub struct {
	store *studentStoreStub
}

func (s authStudentStub) GetByEmail(ctx context.Context, email string) (*models.Student, error) {
	for _, student := range s.store.students {
		if student.Email == email {
			copied := student
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestLoginTeacherIssuesValidToken(t *testing.T) {
	svc := newAuthFixture(t)

	result, err := svc.LoginTeacher(context.Background(), LoginRequest{
		Email: "sari@example.com", Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, result.Role)

	claims, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
}

func TestLoginTeacherWrongPasswordRejected(t *testing.T) {
	svc := newAuthFixture(t)

	_, err := svc.LoginTeacher(context.Background(), LoginRequest{
		Email: "sari@example.com", Password: "wrong-password",
	})
	require.Error(t, err)
}

func TestLoginStudentIssuesStudentRole(t *testing.T) {
	svc := newAuthFixture(t)

	result, err := svc.LoginStudent(context.Background(), LoginRequest{
		Email: "andi@example.com", Password: "supersecret",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.Role)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := newAuthFixture(t)
	other := NewAuthService(nil, nil, "other-secret", time.Hour, nil, nil)

	result, err := svc.LoginTeacher(context.Background(), LoginRequest{
		Email: "sari@example.com", Password: "supersecret",
	})
	require.NoError(t, err)

	_, err = other.ValidateToken(result.Token)
	require.Error(t, err)
}
