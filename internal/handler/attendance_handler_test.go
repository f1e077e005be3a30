package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

type attendanceServiceMock struct {
	marked  string
	history string
	noClass bool
}

func (m *attendanceServiceMock) MarkPresent(ctx context.Context, req dto.MarkPresentRequest) (*models.AttendanceRecord, *models.CurrentClass, error) {
	m.marked = req.StudentID
	if m.noClass {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no ongoing class at this time")
	}
	return &models.AttendanceRecord{StudentID: req.StudentID, Status: models.AttendanceStatusPresent},
		&models.CurrentClass{SubjectName: "Math"}, nil
}

func (m *attendanceServiceMock) History(ctx context.Context, studentID string) ([]models.AttendanceHistoryEntry, error) {
	m.history = studentID
	return []models.AttendanceHistoryEntry{}, nil
}

func TestMarkPresentWithoutBody(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)
	r := newRouter(student("stu-1"))
	r.POST("/attendance/mark-present", h.MarkPresent)

	rec := serveJSON(r, http.MethodPost, "/attendance/mark-present", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "stu-1", svc.marked)
	assert.Contains(t, string(decode(t, rec).Meta["class"]), "Math")
}

func TestMarkPresentNoOngoingClass(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{noClass: true})
	r := newRouter(student("stu-1"))
	r.POST("/attendance/mark-present", h.MarkPresent)

	rec := serveJSON(r, http.MethodPost, "/attendance/mark-present", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendanceHistory(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)
	r := newRouter(teacher("t-1"))
	r.GET("/students/:id/attendance", h.History)

	rec := serveJSON(r, http.MethodGet, "/students/stu-9/attendance", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-9", svc.history)
}
