package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/response"
)

type attendanceService interface {
	MarkPresent(ctx context.Context, req dto.MarkPresentRequest) (*models.AttendanceRecord, *models.CurrentClass, error)
	History(ctx context.Context, studentID string) ([]models.AttendanceHistoryEntry, error)
}

// AttendanceHandler exposes direct attendance marking and history.
type AttendanceHandler struct {
	service attendanceService
}

func NewAttendanceHandler(service attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// MarkPresent godoc
// @Summary Mark the caller present in the class currently in session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkPresentRequest false "Student (staff only)"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/mark-present [post]
func (h *AttendanceHandler) MarkPresent(c *gin.Context) {
	var req dto.MarkPresentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
			return
		}
	}
	req.StudentID = studentScope(c, req.StudentID)

	record, current, err := h.service.MarkPresent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil, map[string]interface{}{"class": current})
}

// History godoc
// @Summary Attendance history of the last 30 days
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	rows, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
