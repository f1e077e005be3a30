package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

type recoveryServiceMock struct {
	ensureArgs  []string
	windowStart time.Time
	listed      string
}

func (m *recoveryServiceMock) EnsureRecoveryAssignment(ctx context.Context, subjectID, studentID string, windowStart time.Time) (*models.RecoveryResult, error) {
	m.ensureArgs = []string{subjectID, studentID}
	m.windowStart = windowStart
	return &models.RecoveryResult{Outcome: models.RecoveryCreated, Assignment: &models.Assignment{ID: "asg-1"}}, nil
}

func (m *recoveryServiceMock) ListForStudent(ctx context.Context, studentID string) ([]models.StudentRecoveryAssignment, error) {
	m.listed = studentID
	return []models.StudentRecoveryAssignment{{SubjectName: "Math", IsSubmitted: true}}, nil
}

func (m *recoveryServiceMock) RenderPDF(ctx context.Context, assignmentID string) ([]byte, *models.Assignment, error) {
	if assignmentID != "asg-1" {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return []byte("%PDF-1.3"), &models.Assignment{ID: assignmentID}, nil
}

func TestEnsureRecoveryUsesWindow(t *testing.T) {
	svc := &recoveryServiceMock{}
	h := NewRecoveryHandler(svc, 7)
	h.now = func() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.Local) }
	r := newRouter(student("stu-1"))
	r.POST("/subjects/:id/recovery-assignment", h.Ensure)

	rec := serveJSON(r, http.MethodPost, "/subjects/math/recovery-assignment", map[string]string{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"math", "stu-1"}, svc.ensureArgs)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.Local), svc.windowStart)
}

func TestListRecoveryForStudent(t *testing.T) {
	svc := &recoveryServiceMock{}
	h := NewRecoveryHandler(svc, 7)
	r := newRouter(student("stu-1"))
	r.GET("/students/:id/recovery-assignments", h.ListForStudent)

	rec := serveJSON(r, http.MethodGet, "/students/stu-1/recovery-assignments", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stu-1", svc.listed)
	assert.Contains(t, string(decode(t, rec).Data), `"is_submitted":true`)
}

func TestDownloadPDF(t *testing.T) {
	h := NewRecoveryHandler(&recoveryServiceMock{}, 7)
	r := newRouter(student("stu-1"))
	r.GET("/assignments/:id/pdf", h.DownloadPDF)

	rec := serveJSON(r, http.MethodGet, "/assignments/asg-1/pdf", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "assignment-asg-1.pdf")

	rec = serveJSON(r, http.MethodGet, "/assignments/nope/pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
