package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/response"
)

type absenceEvaluator interface {
	EvaluateAbsenceCrossing(ctx context.Context, studentID, subjectID string, reference time.Time) (*models.AbsenceEvaluation, error)
}

// EscalationHandler triggers absence evaluation on demand.
type EscalationHandler struct {
	service   absenceEvaluator
	validator *validator.Validate
}

func NewEscalationHandler(service absenceEvaluator, validate *validator.Validate) *EscalationHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &EscalationHandler{service: service, validator: validate}
}

// EvaluateAbsence godoc
// @Summary Evaluate absence windows for a student and subject
// @Description Counts absences in the assignment and SMS windows ending at date and applies the resulting escalations.
// @Tags Escalations
// @Accept json
// @Produce json
// @Param payload body dto.EvaluateAbsenceRequest true "Evaluation input"
// @Success 200 {object} response.Envelope
// @Router /escalations/absence [post]
func (h *EscalationHandler) EvaluateAbsence(c *gin.Context) {
	var req dto.EvaluateAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation request"))
		return
	}
	var reference time.Time
	if req.Date != "" {
		reference, _ = time.Parse("2006-01-02", req.Date)
	}

	eval, err := h.service.EvaluateAbsenceCrossing(c.Request.Context(), req.StudentID, req.SubjectID, reference)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, eval)
}
