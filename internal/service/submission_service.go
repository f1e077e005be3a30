package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/internal/repository"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

type submissionStore interface {
	CreateAndComplete(ctx context.Context, sub *models.Submission) error
}

type assignmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	SubmittedBy(ctx context.Context, assignmentID, studentID string) (bool, error)
}

type fileStore interface {
	SaveStream(name string, r io.Reader) (string, error)
	Delete(name string) error
}

// SubmissionConfig restricts uploads.
type SubmissionConfig struct {
	AllowedExtensions []string
	MaxFileSizeBytes  int64
}

// SubmissionService stores a student's answer file and completes the assignment.
type SubmissionService struct {
	submissions submissionStore
	assignments assignmentLookup
	files       fileStore
	logger      *zap.Logger
	allowed     map[string]struct{}
	maxSize     int64
	now         func() time.Time
}

func NewSubmissionService(submissions submissionStore, assignments assignmentLookup, files fileStore, logger *zap.Logger, cfg SubmissionConfig) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	exts := cfg.AllowedExtensions
	if len(exts) == 0 {
		exts = []string{".pdf", ".doc", ".docx"}
	}
	allowed := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = struct{}{}
	}
	return &SubmissionService{
		submissions: submissions,
		assignments: assignments,
		files:       files,
		logger:      logger,
		allowed:     allowed,
		maxSize:     cfg.MaxFileSizeBytes,
		now:         time.Now,
	}
}

// Submit saves the uploaded file and records the submission. A student submits
// an assignment at most once.
func (s *SubmissionService) Submit(ctx context.Context, assignmentID, studentID, filename string, size int64, content io.Reader) (*models.Submission, error) {
	if assignmentID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignment_id and student_id are required")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := s.allowed[ext]; !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type not allowed")
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.maxSize))
	}

	if _, err := s.assignments.FindByID(ctx, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Persistence(err, "failed to load assignment")
	}
	submitted, err := s.assignments.SubmittedBy(ctx, assignmentID, studentID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load submission status")
	}
	if submitted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already submitted")
	}

	name := path.Join("submissions", assignmentID, studentID+ext)
	stored, err := s.files.SaveStream(name, content)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already submitted")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	sub := &models.Submission{
		ID:             uuid.NewString(),
		AssignmentID:   assignmentID,
		StudentID:      studentID,
		FilePath:       stored,
		Status:         models.SubmissionStatusSubmitted,
		SubmissionDate: s.now().UTC(),
	}
	if err := s.submissions.CreateAndComplete(ctx, sub); err != nil {
		if delErr := s.files.Delete(stored); delErr != nil {
			s.logger.Warn("remove orphaned upload", zap.String("path", stored), zap.Error(delErr))
		}
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already submitted")
		}
		return nil, appErrors.Persistence(err, "failed to record submission")
	}
	s.logger.Info("assignment submitted", zap.String("assignment_id", assignmentID), zap.String("student_id", studentID))
	return sub, nil
}
