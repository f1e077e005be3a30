package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/internal/service"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/response"
)

const maxFrameBytes = 8 << 20

type inactivityService interface {
	EvaluateInactivity(ctx context.Context, studentID string, engaged bool, count int) (*models.InactivityDecision, error)
	AnalyzeFrame(ctx context.Context, studentID, sessionID string, frame []byte, clientCount int) (*service.FrameAnalysis, error)
}

type monitoringService interface {
	Record(ctx context.Context, req dto.CreateMonitoringLogRequest) (*models.MonitoringLog, error)
	List(ctx context.Context, filter models.MonitoringLogFilter) ([]models.MonitoringLogView, *models.Pagination, error)
}

// MonitoringHandler serves classroom engagement endpoints.
type MonitoringHandler struct {
	inactivity inactivityService
	logs       monitoringService
	validator  *validator.Validate
}

func NewMonitoringHandler(inactivity inactivityService, logs monitoringService, validate *validator.Validate) *MonitoringHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &MonitoringHandler{inactivity: inactivity, logs: logs, validator: validate}
}

// AnalyzeStream godoc
// @Summary Classify a webcam frame and escalate sustained inactivity
// @Tags Monitoring
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Frame"
// @Param student_id formData string true "Student ID"
// @Param session_id formData string false "Session ID for server-side streak tracking"
// @Param inactivity_count formData int false "Consecutive inactive checks so far"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /monitoring/analyze-stream [post]
func (h *MonitoringHandler) AnalyzeStream(c *gin.Context) {
	var form dto.AnalyzeStreamForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	form.StudentID = studentScope(c, form.StudentID)
	if err := h.validator.Struct(form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id is required"))
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "No image provided"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable image"))
		return
	}
	defer file.Close()
	frame, err := io.ReadAll(io.LimitReader(file, maxFrameBytes))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable image"))
		return
	}

	analysis, err := h.inactivity.AnalyzeFrame(c.Request.Context(), form.StudentID, form.SessionID, frame, form.InactivityCount)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := dto.AnalyzeStreamResponse{
		Expression:          "inactive",
		Message:             "Inactivity detected",
		NotificationSent:    analysis.Decision.Notified,
		NotificationMessage: analysis.Decision.Message,
		ShouldReset:         analysis.Decision.ShouldReset,
		InactivityCount:     analysis.Decision.NextCount,
	}
	if analysis.Engaged {
		out.Expression = "active"
		out.Message = "Student is active"
	}
	response.OK(c, out)
}

// EvaluateInactivity godoc
// @Summary Apply the inactivity rule to an already classified signal
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param payload body dto.InactivityRequest true "Signal"
// @Success 200 {object} response.Envelope
// @Router /monitoring/inactivity [post]
func (h *MonitoringHandler) EvaluateInactivity(c *gin.Context) {
	var req dto.InactivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.StudentID = studentScope(c, req.StudentID)
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inactivity signal"))
		return
	}

	decision, err := h.inactivity.EvaluateInactivity(c.Request.Context(), req.StudentID, *req.Engaged, req.InactivityCount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, decision)
}

// CreateLog godoc
// @Summary Store an engagement observation
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param payload body dto.CreateMonitoringLogRequest true "Observation"
// @Success 201 {object} response.Envelope
// @Router /monitoring/logs [post]
func (h *MonitoringHandler) CreateLog(c *gin.Context) {
	var req dto.CreateMonitoringLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.StudentID = studentScope(c, req.StudentID)

	log, err := h.logs.Record(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// ListLogs godoc
// @Summary List engagement observations
// @Tags Monitoring
// @Produce json
// @Param student_id query string false "Student ID"
// @Param subject_id query string false "Subject ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /monitoring/logs [get]
func (h *MonitoringHandler) ListLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	filter := models.MonitoringLogFilter{
		StudentID: c.Query("student_id"),
		SubjectID: c.Query("subject_id"),
		Page:      page,
		PageSize:  size,
	}
	rows, pagination, err := h.logs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}
