package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradewise/gradewise-api/internal/models"
)

func TestAttendanceMarkNoCheckout(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	// The guard keeps bulk-marked and overridden days, which carry no
	// check-in timestamp, out of the rewrite.
	today := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("check_in IS NOT NULL AND check_out IS NULL AND date <")).
		WithArgs(
			string(models.AttendanceStatusNoCheckout), sqlmock.AnyArg(),
			string(models.AttendanceStatusPresent), string(models.AttendanceStatusLate), today,
		).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.MarkNoCheckout(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceBulkMarkSkipsExcused(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	for range []string{"s1", "s2"} {
		mock.ExpectExec("INSERT INTO attendance").
			WithArgs(
				sqlmock.AnyArg(), sqlmock.AnyArg(), date, string(models.AttendanceStatusAbsent),
				sqlmock.AnyArg(), sqlmock.AnyArg(),
				string(models.AttendanceStatusSick), string(models.AttendanceStatusPermit),
			).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	err := repo.BulkMark(context.Background(), []string{"s1", "s2"}, date, models.AttendanceStatusAbsent)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceUpsertReplacesByStudentAndDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	date := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	checkIn := date.Add(7 * time.Hour)
	rows := sqlmock.NewRows([]string{"id", "student_id", "date", "status", "check_in", "check_out", "reason", "created_at", "updated_at"}).
		AddRow("a1", "s1", date, string(models.AttendanceStatusLate), checkIn, nil, nil, date, date)
	mock.ExpectQuery("INSERT INTO attendance").
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.Attendance{
		StudentID: "s1",
		Date:      date,
		Status:    models.AttendanceStatusLate,
		CheckIn:   &checkIn,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, stored.Status)
	require.NotNil(t, stored.CheckIn)
	assert.NoError(t, mock.ExpectationsWereMet())
}
