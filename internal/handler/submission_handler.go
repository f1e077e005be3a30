package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, assignmentID, studentID, filename string, size int64, content io.Reader) (*models.Submission, error)
}

// SubmissionHandler accepts answer uploads.
type SubmissionHandler struct {
	service submissionService
}

func NewSubmissionHandler(service submissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// Submit godoc
// @Summary Upload an answer file for an assignment
// @Tags Recovery
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Answer file (.pdf, .doc, .docx)"
// @Param student_id formData string false "Student ID (staff only)"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{id}/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "No file uploaded"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable upload"))
		return
	}
	defer file.Close()

	studentID := studentScope(c, c.PostForm("student_id"))
	sub, err := h.service.Submit(c.Request.Context(), c.Param("id"), studentID, header.Filename, header.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}
