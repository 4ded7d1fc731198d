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

type attendanceStoreStub struct {
	items map[string]models.Attendance
}

func (s *attendanceStoreStub) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	if s.items == nil {
		s.items = make(map[string]models.Attendance)
	}
	stored := *record
	if stored.ID == "" {
		stored.ID = attendanceKey(record.StudentID, record.Date)
	}
	s.items[attendanceKey(record.StudentID, record.Date)] = stored
	return &stored, nil
}

func (s *attendanceStoreStub) GetByStudentDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error) {
	if record, ok := s.items[attendanceKey(studentID, date)]; ok {
		copied := record
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *attendanceStoreStub) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	result := []models.Attendance{}
	for _, record := range s.items {
		if filter.StudentID == "" || record.StudentID == filter.StudentID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (s *attendanceStoreStub) MarkNoCheckout(ctx context.Context, before time.Time) (int64, error) {
	var affected int64
	for key, record := range s.items {
		if record.Date.Before(before) && record.CheckOut == nil && record.Status.Attended() {
			record.Status = models.AttendanceStatusNoCheckout
			s.items[key] = record
			affected++
		}
	}
	return affected, nil
}

func (s *attendanceStoreStub) BulkMark(ctx context.Context, studentIDs []string, date time.Time, status models.AttendanceStatus) error {
	for _, studentID := range studentIDs {
		existing, ok := s.items[attendanceKey(studentID, date)]
		if ok && existing.Status.Excused() {
			continue
		}
		s.Upsert(ctx, &models.Attendance{StudentID: studentID, Date: date, Status: status})
	}
	return nil
}

type studentStoreStub struct {
	students map[string]models.Student
	bound    map[string]string
}

func (s *studentStoreStub) Get(ctx context.Context, id string) (*models.Student, error) {
	if student, ok := s.students[id]; ok {
		copied := student
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentStoreStub) BindDevice(ctx context.Context, id, deviceID string) error {
	if s.bound == nil {
		s.bound = make(map[string]string)
	}
	s.bound[id] = deviceID
	student := s.students[id]
	student.DeviceID = &deviceID
	s.students[id] = student
	return nil
}

type ratingSyncStub struct {
	synced []string
}

func (s *ratingSyncStub) SyncAttendanceScore(ctx context.Context, studentID string, date time.Time) error {
	s.synced = append(s.synced, attendanceKey(studentID, date))
	return nil
}

const (
	schoolLat = -4.329808
	schoolLng = 120.028856
)

type attendanceFixture struct {
	svc        *AttendanceService
	attendance *attendanceStoreStub
	students   *studentStoreStub
	sync       *ratingSyncStub
}

func newAttendanceFixture(now time.Time, students map[string]models.Student) *attendanceFixture {
	attendance := &attendanceStoreStub{}
	studentRepo := &studentStoreStub{students: students}
	sync := &ratingSyncStub{}
	svc := NewAttendanceService(
		attendance,
		studentRepo,
		&settingsRepoStub{settings: models.Settings{
			Latitude:      schoolLat,
			Longitude:     schoolLng,
			CheckInRadius: 50,
			LateTime:      "07:00",
			CheckOutTime:  "15:30",
		}},
		sync,
		nil, nil, nil,
	)
	svc.now = func() time.Time { return now }
	return &attendanceFixture{svc: svc, attendance: attendance, students: studentRepo, sync: sync}
}

func rosterWith(deviceID *string) map[string]models.Student {
	return map[string]models.Student{
		"s1": {ID: "s1", Name: "Andi", Email: "andi@example.com", DeviceID: deviceID},
	}
}

func TestCheckInOnTimeBindsDevice(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))

	record, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.NoError(t, err)

	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	require.NotNil(t, record.CheckIn)
	assert.Equal(t, "device-a", fix.students.bound["s1"])
	assert.Len(t, fix.sync.synced, 1)
}

func TestCheckInAfterThresholdIsLate(t *testing.T) {
	now := time.Date(2026, 3, 2, 7, 20, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))

	record, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, record.Status)
}

func TestCheckInOutsideRadiusRejected(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))

	// Roughly 111 m north of the school gate.
	_, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat + 0.001, Longitude: schoolLng,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrOutOfRadius.Code, appErr.Code)
}

func TestCheckInFromWrongDeviceRejected(t *testing.T) {
	bound := "device-a"
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(&bound))

	_, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-b",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDeviceMismatch.Code, appErr.Code)
}

func TestCheckInTwiceRejected(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))
	req := CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	}

	_, err := fix.svc.CheckIn(context.Background(), req)
	require.NoError(t, err)
	_, err = fix.svc.CheckIn(context.Background(), req)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestCheckOutBeforeGateRejected(t *testing.T) {
	morning := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(morning, rosterWith(nil))
	_, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.NoError(t, err)

	fix.svc.now = func() time.Time { return time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) }
	_, err = fix.svc.CheckOut(context.Background(), "s1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCheckOutNotOpen.Code, appErr.Code)
}

func TestCheckOutAfterGateCompletesDay(t *testing.T) {
	morning := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(morning, rosterWith(nil))
	_, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.NoError(t, err)

	fix.svc.now = func() time.Time { return time.Date(2026, 3, 2, 15, 45, 0, 0, time.UTC) }
	record, err := fix.svc.CheckOut(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, record.CheckOut)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
}

func TestCheckOutWithoutCheckInRejected(t *testing.T) {
	afternoon := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	fix := newAttendanceFixture(afternoon, rosterWith(nil))

	_, err := fix.svc.CheckOut(context.Background(), "s1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotCheckedIn.Code, appErr.Code)
}

func TestReportAbsenceAfterCheckInRejected(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))
	_, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.NoError(t, err)

	_, err = fix.svc.ReportAbsence(context.Background(), ReportAbsenceRequest{
		StudentID: "s1", Status: "sick", Reason: "flu",
	})
	require.Error(t, err)
}

func TestReportAbsenceTwiceRejected(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))
	req := ReportAbsenceRequest{StudentID: "s1", Status: "permit", Reason: "family event"}

	record, err := fix.svc.ReportAbsence(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPermit, record.Status)
	assert.Nil(t, record.CheckIn)

	_, err = fix.svc.ReportAbsence(context.Background(), req)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrAlreadyReported.Code, appErr.Code)
}

func TestOverrideStatusClearsTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 50, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))
	_, err := fix.svc.CheckIn(context.Background(), CheckInRequest{
		StudentID: "s1", DeviceID: "device-a",
		Latitude: schoolLat, Longitude: schoolLng,
	})
	require.NoError(t, err)

	record, err := fix.svc.OverrideStatus(context.Background(), OverrideStatusRequest{
		StudentID: "s1", Date: "2026-03-02", Status: "absent", Reason: "left campus",
	})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, record.Status)
	assert.Nil(t, record.CheckIn)
	assert.Nil(t, record.CheckOut)
}

func TestListSettlesStaleOpenDays(t *testing.T) {
	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	fix := newAttendanceFixture(now, rosterWith(nil))

	yesterday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	checkIn := yesterday.Add(7 * time.Hour)
	fix.attendance.items = map[string]models.Attendance{
		attendanceKey("s1", yesterday): {
			StudentID: "s1", Date: yesterday,
			Status: models.AttendanceStatusPresent, CheckIn: &checkIn,
		},
	}

	rows, err := fix.svc.List(context.Background(), models.AttendanceFilter{StudentID: "s1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendanceStatusNoCheckout, rows[0].Status)
}
