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
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

const historyDays = 30

type attendanceLedger interface {
	Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error
	History(ctx context.Context, studentID string, since time.Time) ([]models.AttendanceHistoryEntry, error)
}

type studentLookup interface {
	FindWithMentor(ctx context.Context, id string) (*models.StudentWithMentor, error)
}

// AttendanceService records direct presence and serves attendance history.
type AttendanceService struct {
	ledger    attendanceLedger
	students  studentLookup
	schedule  scheduleReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(ledger attendanceLedger, students studentLookup, schedule scheduleReader, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		ledger:    ledger,
		students:  students,
		schedule:  schedule,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// MarkPresent records presence in the subject currently scheduled for the
// student's class.
func (s *AttendanceService) MarkPresent(ctx context.Context, req dto.MarkPresentRequest) (*models.AttendanceRecord, *models.CurrentClass, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student_id is required")
	}
	student, err := s.students.FindWithMentor(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Persistence(err, "failed to load student")
	}

	now := s.now()
	current, err := s.schedule.CurrentClass(ctx, student.ClassID, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no ongoing class at this time")
		}
		return nil, nil, appErrors.Persistence(err, "failed to load current class")
	}

	record := &models.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		SubjectID: current.SubjectID,
		Date:      truncateDay(now),
		Status:    models.AttendanceStatusPresent,
	}
	if err := s.ledger.Upsert(ctx, nil, record); err != nil {
		return nil, nil, appErrors.Persistence(err, "failed to mark attendance")
	}
	s.logger.Info("attendance marked present",
		zap.String("student_id", student.ID), zap.String("subject_id", current.SubjectID))
	return record, current, nil
}

// History lists the student's ledger rows of the last 30 days, newest first.
func (s *AttendanceService) History(ctx context.Context, studentID string) ([]models.AttendanceHistoryEntry, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	since := truncateDay(s.now()).AddDate(0, 0, -historyDays)
	rows, err := s.ledger.History(ctx, studentID, since)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load attendance history")
	}
	return rows, nil
}
