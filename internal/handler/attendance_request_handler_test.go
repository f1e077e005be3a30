package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

type attendanceRequestServiceMock struct {
	created     dto.CreateAttendanceRequest
	createErr   error
	listTeacher string
	listDate    time.Time
	resolveArgs []string
	resolveErr  error
}

func (m *attendanceRequestServiceMock) CreateRequest(ctx context.Context, req dto.CreateAttendanceRequest) (*models.AttendanceRequest, error) {
	m.created = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.AttendanceRequest{ID: "req-1", StudentID: req.StudentID, SubjectID: req.SubjectID, Status: models.RequestStatusPending}, nil
}

func (m *attendanceRequestServiceMock) ListForTeacher(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRequestView, error) {
	m.listTeacher, m.listDate = teacherID, date
	return []models.AttendanceRequestView{{StudentName: "Ana"}}, nil
}

func (m *attendanceRequestServiceMock) ResolveAttendanceRequest(ctx context.Context, requestID, teacherID string, decision models.Decision) (*models.ResolutionResult, error) {
	m.resolveArgs = []string{requestID, teacherID, string(decision)}
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return &models.ResolutionResult{Request: models.AttendanceRequest{ID: requestID, Status: decision.RequestStatus()}}, nil
}

func attendanceRequestRouter(svc *attendanceRequestServiceMock, claims *models.JWTClaims) *gin.Engine {
	h := NewAttendanceRequestHandler(svc)
	r := newRouter(claims)
	r.POST("/attendance/requests", h.Create)
	r.GET("/teacher/attendance-requests", h.ListForTeacher)
	r.POST("/teacher/attendance-requests/:id/respond", h.Respond)
	return r
}

func TestCreateAttendanceRequestUsesTokenStudent(t *testing.T) {
	svc := &attendanceRequestServiceMock{}
	r := attendanceRequestRouter(svc, student("stu-1"))

	rec := serveJSON(r, http.MethodPost, "/attendance/requests", map[string]string{"student_id": "someone-else", "subject_id": "math"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "stu-1", svc.created.StudentID)
	assert.Equal(t, "success", decode(t, rec).Status)
}

func TestCreateAttendanceRequestConflict(t *testing.T) {
	svc := &attendanceRequestServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "already requested")}
	r := attendanceRequestRouter(svc, student("stu-1"))

	rec := serveJSON(r, http.MethodPost, "/attendance/requests", map[string]string{"subject_id": "math"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "error", env.Status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestListForTeacherParsesDate(t *testing.T) {
	svc := &attendanceRequestServiceMock{}
	r := attendanceRequestRouter(svc, teacher("t-1"))

	rec := serveJSON(r, http.MethodGet, "/teacher/attendance-requests?date=2024-03-10", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t-1", svc.listTeacher)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), svc.listDate)

	rec = serveJSON(r, http.MethodGet, "/teacher/attendance-requests?date=10/03/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespondPassesCallerAsTeacher(t *testing.T) {
	svc := &attendanceRequestServiceMock{}
	r := attendanceRequestRouter(svc, teacher("t-1"))

	rec := serveJSON(r, http.MethodPost, "/teacher/attendance-requests/req-9/respond", map[string]string{"decision": "reject"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"req-9", "t-1", "reject"}, svc.resolveArgs)
}

func TestRespondMapsDomainErrors(t *testing.T) {
	cases := map[int]error{
		http.StatusForbidden:  appErrors.Clone(appErrors.ErrForbidden, "not your subject"),
		http.StatusConflict:   appErrors.Clone(appErrors.ErrAlreadyResolved, "already approved"),
		http.StatusNotFound:   appErrors.Clone(appErrors.ErrNotFound, "no such request"),
		http.StatusBadRequest: appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject"),
	}
	for want, err := range cases {
		svc := &attendanceRequestServiceMock{resolveErr: err}
		r := attendanceRequestRouter(svc, teacher("t-1"))
		rec := serveJSON(r, http.MethodPost, "/teacher/attendance-requests/req-1/respond", map[string]string{"decision": "maybe"})
		assert.Equal(t, want, rec.Code)
	}
}

func TestRespondWithoutClaims(t *testing.T) {
	r := attendanceRequestRouter(&attendanceRequestServiceMock{}, nil)
	rec := serveJSON(r, http.MethodPost, "/teacher/attendance-requests/req-1/respond", map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
