package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/internal/repository"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type attendanceRequestRepository interface {
	Create(ctx context.Context, req *models.AttendanceRequest) error
	LockForResolution(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RequestOwnership, error)
	Resolve(ctx context.Context, exec sqlx.ExtContext, id string, status models.RequestStatus, at time.Time) error
	ListForTeacher(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRequestView, error)
}

type ledgerWriter interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error
}

type absencePolicy interface {
	Assess(ctx context.Context, exec sqlx.ExtContext, studentID, subjectID string, reference time.Time) (*models.AbsenceAssessment, error)
	Apply(ctx context.Context, assessment *models.AbsenceAssessment) (*models.AbsenceEvaluation, error)
}

// AttendanceRequestService runs the pending → approved | rejected workflow.
type AttendanceRequestService struct {
	db        txProvider
	requests  attendanceRequestRepository
	ledger    ledgerWriter
	subjects  subjectReader
	policy    absencePolicy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceRequestService constructs the workflow service.
func NewAttendanceRequestService(
	db txProvider,
	requests attendanceRequestRepository,
	ledger ledgerWriter,
	subjects subjectReader,
	policy absencePolicy,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceRequestService{
		db:        db,
		requests:  requests,
		ledger:    ledger,
		subjects:  subjects,
		policy:    policy,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateRequest files a pending request for today's class of the subject. The
// subject's teacher becomes the resolver.
func (s *AttendanceRequestService) CreateRequest(ctx context.Context, req dto.CreateAttendanceRequest) (*models.AttendanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id and subject_id are required")
	}
	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Persistence(err, "failed to load subject")
	}

	now := s.now()
	record := &models.AttendanceRequest{
		ID:          uuid.NewString(),
		StudentID:   req.StudentID,
		SubjectID:   req.SubjectID,
		TeacherID:   subject.TeacherID,
		ClassDate:   truncateDay(now),
		Status:      models.RequestStatusPending,
		RequestTime: now.UTC(),
	}
	if err := s.requests.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already requested for this class today")
		}
		return nil, appErrors.Persistence(err, "failed to create attendance request")
	}
	s.logger.Info("attendance requested",
		zap.String("request_id", record.ID), zap.String("student_id", record.StudentID), zap.String("subject_id", record.SubjectID))
	return record, nil
}

// ListForTeacher returns the teacher's requests for date, pending first.
func (s *AttendanceRequestService) ListForTeacher(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRequestView, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}
	if date.IsZero() {
		date = s.now()
	}
	items, err := s.requests.ListForTeacher(ctx, teacherID, truncateDay(date))
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list attendance requests")
	}
	return items, nil
}

// ResolveAttendanceRequest applies the teacher's decision. The status change,
// the ledger write and, on rejection, the absence assessment share one
// transaction; escalation side effects run only after it commits.
func (s *AttendanceRequestService) ResolveAttendanceRequest(ctx context.Context, requestID, teacherID string, decision models.Decision) (*models.ResolutionResult, error) {
	if !decision.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be approve or reject")
	}
	if requestID == "" || teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id and teacher id are required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	owned, err := s.requests.LockForResolution(ctx, tx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance request not found")
		}
		return nil, appErrors.Persistence(err, "failed to load attendance request")
	}
	if owned.SubjectTeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "teacher does not teach this subject")
	}
	if owned.Status != models.RequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "attendance request already "+string(owned.Status))
	}

	now := s.now().UTC()
	status := decision.RequestStatus()
	if err := s.requests.Resolve(ctx, tx, requestID, status, now); err != nil {
		if errors.Is(err, repository.ErrRequestNotPending) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyResolved, "attendance request already resolved")
		}
		return nil, appErrors.Persistence(err, "failed to resolve attendance request")
	}

	if err := s.ledger.Upsert(ctx, tx, &models.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: owned.StudentID,
		SubjectID: owned.SubjectID,
		Date:      owned.ClassDate,
		Status:    decision.AttendanceStatus(),
	}); err != nil {
		return nil, appErrors.Persistence(err, "failed to record attendance")
	}

	var assessment *models.AbsenceAssessment
	if decision == models.DecisionReject {
		assessment, err = s.policy.Assess(ctx, tx, owned.StudentID, owned.SubjectID, owned.ClassDate)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Persistence(err, "failed to commit attendance decision")
	}

	resolved := owned.AttendanceRequest
	resolved.Status = status
	resolved.ResponseTime = &now
	result := &models.ResolutionResult{Request: resolved}

	log := s.logger.With(zap.String("request_id", requestID), zap.String("status", string(status)))
	log.Info("attendance request resolved")

	if assessment != nil {
		eval, err := s.policy.Apply(ctx, assessment)
		if err != nil {
			log.Error("absence escalation failed after commit", zap.Error(err))
		}
		result.Escalation = eval
	}
	return result, nil
}
