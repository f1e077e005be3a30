package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/response"
)

type attendanceRequestService interface {
	CreateRequest(ctx context.Context, req dto.CreateAttendanceRequest) (*models.AttendanceRequest, error)
	ListForTeacher(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRequestView, error)
	ResolveAttendanceRequest(ctx context.Context, requestID, teacherID string, decision models.Decision) (*models.ResolutionResult, error)
}

// AttendanceRequestHandler exposes the student request / teacher decision flow.
type AttendanceRequestHandler struct {
	service attendanceRequestService
}

// NewAttendanceRequestHandler builds the handler.
func NewAttendanceRequestHandler(service attendanceRequestService) *AttendanceRequestHandler {
	return &AttendanceRequestHandler{service: service}
}

// Create godoc
// @Summary Request attendance for today's class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CreateAttendanceRequest true "Attendance request"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/requests [post]
func (h *AttendanceRequestHandler) Create(c *gin.Context) {
	var req dto.CreateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.StudentID = studentScope(c, req.StudentID)

	created, err := h.service.CreateRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListForTeacher godoc
// @Summary List attendance requests addressed to the calling teacher
// @Tags Attendance
// @Produce json
// @Param date query string false "Class date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /teacher/attendance-requests [get]
func (h *AttendanceRequestHandler) ListForTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	items, err := h.service.ListForTeacher(c.Request.Context(), claims.UserID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Respond godoc
// @Summary Approve or reject an attendance request
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RespondAttendanceRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher/attendance-requests/{id}/respond [post]
func (h *AttendanceRequestHandler) Respond(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RespondAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	result, err := h.service.ResolveAttendanceRequest(c.Request.Context(), c.Param("id"), claims.UserID, models.Decision(req.Decision))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
