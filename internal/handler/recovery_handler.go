package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/response"
)

type recoveryService interface {
	EnsureRecoveryAssignment(ctx context.Context, subjectID, studentID string, windowStart time.Time) (*models.RecoveryResult, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentRecoveryAssignment, error)
	RenderPDF(ctx context.Context, assignmentID string) ([]byte, *models.Assignment, error)
}

// RecoveryHandler serves recovery assignments.
type RecoveryHandler struct {
	service    recoveryService
	windowDays int
	now        func() time.Time
}

// NewRecoveryHandler builds the handler. windowDays bounds how old an existing
// assignment may be when a subject's recovery assignment is requested directly.
func NewRecoveryHandler(service recoveryService, windowDays int) *RecoveryHandler {
	if windowDays <= 0 {
		windowDays = 7
	}
	return &RecoveryHandler{service: service, windowDays: windowDays, now: time.Now}
}

// ListForStudent godoc
// @Summary Recovery assignments for subjects the student keeps missing
// @Tags Recovery
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/recovery-assignments [get]
func (h *RecoveryHandler) ListForStudent(c *gin.Context) {
	items, err := h.service.ListForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Ensure godoc
// @Summary Ensure the subject has a recovery assignment for the current window
// @Tags Recovery
// @Accept json
// @Produce json
// @Param id path string true "Subject ID"
// @Param payload body dto.EnsureRecoveryRequest true "Student"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/recovery-assignment [post]
func (h *RecoveryHandler) Ensure(c *gin.Context) {
	var req dto.EnsureRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.StudentID = studentScope(c, req.StudentID)
	if req.StudentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}

	y, m, d := h.now().Date()
	windowStart := time.Date(y, m, d, 0, 0, 0, 0, time.Local).AddDate(0, 0, -h.windowDays)
	result, err := h.service.EnsureRecoveryAssignment(c.Request.Context(), c.Param("id"), req.StudentID, windowStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// DownloadPDF godoc
// @Summary Download an assignment's questions as PDF
// @Tags Recovery
// @Produce application/pdf
// @Param id path string true "Assignment ID"
// @Success 200 {file} binary
// @Router /assignments/{id}/pdf [get]
func (h *RecoveryHandler) DownloadPDF(c *gin.Context) {
	body, assignment, err := h.service.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="assignment-%s.pdf"`, assignment.ID))
	c.Data(http.StatusOK, "application/pdf", body)
}
