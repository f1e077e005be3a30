package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

const (
	ruleAssignmentWindow = "assignment_window"
	ruleSMSWindow        = "sms_window"
)

// AbsencePolicyConfig holds the two independent absence windows.
type AbsencePolicyConfig struct {
	AssignmentWindowDays int
	AssignmentThreshold  int
	SMSWindowDays        int
	SMSThreshold         int
}

type absenceCounter interface {
	AbsenceDates(ctx context.Context, exec sqlx.ExtContext, studentID, subjectID string, since, until time.Time) ([]time.Time, error)
}

type recoveryEnsurer interface {
	EnsureRecoveryAssignment(ctx context.Context, subjectID, studentID string, windowStart time.Time) (*models.RecoveryResult, error)
}

type studentContactReader interface {
	FindWithMentor(ctx context.Context, id string) (*models.StudentWithMentor, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, event models.NotificationEvent) <-chan models.DeliveryResult
}

type evaluationMetrics interface {
	RecordEvaluation(rule string, crossed bool)
}

// AbsencePolicyService decides whether repeated absences escalate. Assess only
// counts and may run inside the caller's transaction; Apply performs the side
// effects and must run after that transaction commits.
type AbsencePolicyService struct {
	ledger   absenceCounter
	recovery recoveryEnsurer
	students studentContactReader
	subjects subjectReader
	notifier notificationDispatcher
	metrics  evaluationMetrics
	logger   *zap.Logger
	cfg      AbsencePolicyConfig
	now      func() time.Time
}

// NewAbsencePolicyService wires the policy.
func NewAbsencePolicyService(
	ledger absenceCounter,
	recovery recoveryEnsurer,
	students studentContactReader,
	subjects subjectReader,
	notifier notificationDispatcher,
	metrics evaluationMetrics,
	logger *zap.Logger,
	cfg AbsencePolicyConfig,
) *AbsencePolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	return &AbsencePolicyService{
		ledger:   ledger,
		recovery: recovery,
		students: students,
		subjects: subjects,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// EvaluateAbsenceCrossing counts both windows ending at reference and applies
// whatever side effects the crossings call for. A zero reference means today.
func (s *AbsencePolicyService) EvaluateAbsenceCrossing(ctx context.Context, studentID, subjectID string, reference time.Time) (*models.AbsenceEvaluation, error) {
	if studentID == "" || subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id and subject_id are required")
	}
	if reference.IsZero() {
		reference = s.now()
	}
	assessment, err := s.Assess(ctx, nil, studentID, subjectID, reference)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, assessment)
}

// Assess counts absences in both windows. Each window spans
// [reference - N days, reference], inclusive on both ends.
func (s *AbsencePolicyService) Assess(ctx context.Context, exec sqlx.ExtContext, studentID, subjectID string, reference time.Time) (*models.AbsenceAssessment, error) {
	ref := truncateDay(reference)
	assignment, err := s.window(ctx, exec, studentID, subjectID, ref, s.cfg.AssignmentWindowDays, s.cfg.AssignmentThreshold)
	if err != nil {
		return nil, err
	}
	smsWindow, err := s.window(ctx, exec, studentID, subjectID, ref, s.cfg.SMSWindowDays, s.cfg.SMSThreshold)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEvaluation(ruleAssignmentWindow, assignment.Crossed)
	s.metrics.RecordEvaluation(ruleSMSWindow, smsWindow.Crossed)

	return &models.AbsenceAssessment{
		StudentID:  studentID,
		SubjectID:  subjectID,
		Reference:  ref,
		Assignment: assignment,
		SMS:        smsWindow,
	}, nil
}

func (s *AbsencePolicyService) window(ctx context.Context, exec sqlx.ExtContext, studentID, subjectID string, ref time.Time, days, threshold int) (models.AbsenceWindow, error) {
	since := ref.AddDate(0, 0, -days)
	dates, err := s.ledger.AbsenceDates(ctx, exec, studentID, subjectID, since, ref)
	if err != nil {
		return models.AbsenceWindow{}, appErrors.Persistence(err, "failed to count absences")
	}
	if dates == nil {
		dates = []time.Time{}
	}
	return models.AbsenceWindow{
		WindowDays: days,
		Threshold:  threshold,
		Since:      since,
		Until:      ref,
		Count:      len(dates),
		Dates:      dates,
		Crossed:    len(dates) >= threshold,
	}, nil
}

// Apply runs the side effects of a committed assessment. Notification and
// generation failures are absorbed; only a storage failure while ensuring the
// recovery assignment is returned, together with the partial evaluation.
func (s *AbsencePolicyService) Apply(ctx context.Context, assessment *models.AbsenceAssessment) (*models.AbsenceEvaluation, error) {
	eval := &models.AbsenceEvaluation{AbsenceAssessment: *assessment}
	log := s.logger.With(zap.String("student_id", assessment.StudentID), zap.String("subject_id", assessment.SubjectID))

	var recoveryErr error
	if assessment.Assignment.Crossed {
		result, err := s.recovery.EnsureRecoveryAssignment(ctx, assessment.SubjectID, assessment.StudentID, assessment.Assignment.Since)
		if err != nil {
			log.Error("recovery assignment failed", zap.Error(err))
			recoveryErr = err
		} else {
			eval.Recovery = result
		}
	}

	if assessment.SMS.Crossed {
		eval.Notifications = s.notifyAbsence(ctx, log, assessment)
	}

	return eval, recoveryErr
}

func (s *AbsencePolicyService) notifyAbsence(ctx context.Context, log *zap.Logger, assessment *models.AbsenceAssessment) []models.NotificationEvent {
	student, err := s.students.FindWithMentor(ctx, assessment.StudentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error("load student for absence alert", zap.Error(err))
		} else {
			log.Warn("absence alert skipped: unknown student")
		}
		return nil
	}
	subject, err := s.subjects.FindByID(ctx, assessment.SubjectID)
	if err != nil {
		log.Error("load subject for absence alert", zap.Error(err))
		return nil
	}

	days := assessment.SMS.WindowDays
	var events []models.NotificationEvent
	if phone := models.Deref(student.StudentPhone); phone != "" {
		events = append(events, models.NotificationEvent{
			Recipient: phone,
			Body:      studentAbsenceMessage(subject.Name, days),
			Trigger:   models.TriggerAbsenceStudent,
		})
	}
	if phone := models.Deref(student.ParentPhone); phone != "" {
		events = append(events, models.NotificationEvent{
			Recipient: phone,
			Body:      parentAbsenceMessage(student.Name, subject.Name, days),
			Trigger:   models.TriggerAbsenceParent,
		})
	}
	for _, event := range events {
		// Results are logged by the dispatcher; nobody waits for them here.
		_ = s.notifier.Dispatch(ctx, event)
	}
	if len(events) == 0 {
		log.Info("absence alert skipped: no phone numbers on file")
	}
	return events
}

func studentAbsenceMessage(subject string, days int) string {
	return fmt.Sprintf("Alert: You missed %s for %d days. Complete recovery assignment before deadline.", subject, days)
}

func parentAbsenceMessage(student, subject string, days int) string {
	return fmt.Sprintf("Alert: %s has missed %s for %d days.", student, subject, days)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
