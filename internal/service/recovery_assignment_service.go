package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/export"
	"github.com/noah-isme/sma-escalation-api/pkg/questiongen"
)

var errGeneratorDisabled = errors.New("question generator disabled")

// RecoveryConfig controls recovery assignment creation.
type RecoveryConfig struct {
	WindowDays int
	Threshold  int
	DueIn      time.Duration
	LockTTL    time.Duration
}

type recoveryStore interface {
	FindRecentRecovery(ctx context.Context, exec sqlx.ExtContext, subjectID string, since time.Time) (*models.Assignment, error)
	CreateRecovery(ctx context.Context, a *models.Assignment, since time.Time) (*models.Assignment, bool, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	SubmittedBy(ctx context.Context, assignmentID, studentID string) (bool, error)
}

type absenceSummaryReader interface {
	SubjectsOverThreshold(ctx context.Context, studentID string, since, until time.Time, threshold int) ([]models.SubjectAbsence, error)
}

type singleFlight interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*cache.Lock, bool, error)
}

type sheetRenderer interface {
	Render(sheet export.QuestionSheet) ([]byte, error)
}

type recoveryMetrics interface {
	RecordRecovery(outcome string)
	ObserveGeneration(ok bool, d time.Duration)
}

// RecoveryAssignmentService makes sure a subject has at most one recovery
// assignment per absence window.
type RecoveryAssignmentService struct {
	store     recoveryStore
	subjects  subjectReader
	absences  absenceSummaryReader
	locker    singleFlight
	generator questiongen.Generator
	exporter  sheetRenderer
	metrics   recoveryMetrics
	logger    *zap.Logger
	cfg       RecoveryConfig
	now       func() time.Time
}

// NewRecoveryAssignmentService wires the generator. A nil generator makes every
// creation attempt resolve as skipped.
func NewRecoveryAssignmentService(
	store recoveryStore,
	subjects subjectReader,
	absences absenceSummaryReader,
	locker singleFlight,
	generator questiongen.Generator,
	exporter sheetRenderer,
	metrics recoveryMetrics,
	logger *zap.Logger,
	cfg RecoveryConfig,
) *RecoveryAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if exporter == nil {
		exporter = export.NewPDFExporter()
	}
	if cfg.DueIn <= 0 {
		cfg.DueIn = 7 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &RecoveryAssignmentService{
		store:     store,
		subjects:  subjects,
		absences:  absences,
		locker:    locker,
		generator: generator,
		exporter:  exporter,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// EnsureRecoveryAssignment returns the subject's recovery assignment created at
// or after windowStart, generating one when none exists. Generation failures
// resolve as RecoverySkipped without an error.
func (s *RecoveryAssignmentService) EnsureRecoveryAssignment(ctx context.Context, subjectID, studentID string, windowStart time.Time) (*models.RecoveryResult, error) {
	log := s.logger.With(zap.String("subject_id", subjectID), zap.String("student_id", studentID))

	existing, err := s.store.FindRecentRecovery(ctx, nil, subjectID, windowStart)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load recovery assignment")
	}
	if existing != nil {
		return s.finish(existing, models.RecoveryExisting), nil
	}

	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Persistence(err, "failed to load subject")
	}

	lockKey := "recovery:" + subjectID
	lock, acquired, err := s.locker.TryLock(ctx, lockKey, s.cfg.LockTTL)
	switch {
	case err != nil:
		log.Warn("recovery lock unavailable, relying on database guard", zap.Error(err))
	case !acquired:
		// Another worker is generating; return its row if it has landed already.
		winner, findErr := s.store.FindRecentRecovery(ctx, nil, subjectID, windowStart)
		if findErr != nil {
			return nil, appErrors.Persistence(findErr, "failed to load recovery assignment")
		}
		return s.finish(winner, models.RecoveryDuplicateSuppressed), nil
	default:
		defer func() {
			if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
				log.Warn("release recovery lock", zap.Error(releaseErr))
			}
		}()
	}

	questions, err := s.generate(ctx, subject.Name)
	if err != nil {
		log.Warn("question generation failed, recovery assignment skipped", zap.Error(err))
		return s.finish(nil, models.RecoverySkipped), nil
	}

	description, err := json.Marshal(questions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode questions")
	}
	now := s.now().UTC()
	candidate := &models.Assignment{
		SubjectID:   subjectID,
		Title:       fmt.Sprintf("Recovery Assignment - %s", subject.Name),
		Description: string(description),
		DueDate:     now.Add(s.cfg.DueIn),
		Status:      models.AssignmentStatusPending,
		Kind:        models.AssignmentKindRecovery,
		CreatedAt:   now,
	}
	saved, created, err := s.store.CreateRecovery(ctx, candidate, windowStart)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to create recovery assignment")
	}
	if !created {
		log.Info("recovery assignment created concurrently", zap.String("assignment_id", saved.ID))
		return s.finish(saved, models.RecoveryDuplicateSuppressed), nil
	}
	log.Info("recovery assignment created", zap.String("assignment_id", saved.ID), zap.Int("questions", len(questions)))
	return s.finish(saved, models.RecoveryCreated), nil
}

func (s *RecoveryAssignmentService) generate(ctx context.Context, subjectName string) ([]string, error) {
	if s.generator == nil {
		return nil, errGeneratorDisabled
	}
	started := time.Now()
	questions, err := s.generator.Generate(ctx, subjectName)
	s.metrics.ObserveGeneration(err == nil, time.Since(started))
	return questions, err
}

func (s *RecoveryAssignmentService) finish(a *models.Assignment, outcome models.RecoveryOutcome) *models.RecoveryResult {
	s.metrics.RecordRecovery(string(outcome))
	result := &models.RecoveryResult{Assignment: a, Outcome: outcome}
	if a != nil {
		result.Questions = a.Questions()
	}
	return result
}

// ListForStudent ensures and returns a recovery assignment for every subject in
// which the student crossed the assignment threshold.
func (s *RecoveryAssignmentService) ListForStudent(ctx context.Context, studentID string) ([]models.StudentRecoveryAssignment, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	today := truncateDay(s.now())
	since := today.AddDate(0, 0, -s.cfg.WindowDays)

	subjects, err := s.absences.SubjectsOverThreshold(ctx, studentID, since, today, s.cfg.Threshold)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load absence summary")
	}

	out := make([]models.StudentRecoveryAssignment, 0, len(subjects))
	for _, subject := range subjects {
		result, err := s.EnsureRecoveryAssignment(ctx, subject.SubjectID, studentID, since)
		if err != nil {
			return nil, err
		}
		if result.Assignment == nil {
			continue
		}
		submitted, err := s.store.SubmittedBy(ctx, result.Assignment.ID, studentID)
		if err != nil {
			return nil, appErrors.Persistence(err, "failed to load submission status")
		}
		out = append(out, models.StudentRecoveryAssignment{
			Assignment:   *result.Assignment,
			SubjectName:  subject.SubjectName,
			SubjectCode:  subject.SubjectCode,
			AbsenceCount: subject.AbsenceCount,
			Questions:    result.Questions,
			IsSubmitted:  submitted,
		})
	}
	return out, nil
}

// RenderPDF renders the assignment's questions as a printable sheet.
func (s *RecoveryAssignmentService) RenderPDF(ctx context.Context, assignmentID string) ([]byte, *models.Assignment, error) {
	assignment, err := s.store.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, nil, appErrors.Persistence(err, "failed to load assignment")
	}
	questions := assignment.Questions()
	if len(questions) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "assignment has no questions")
	}

	sheet := export.QuestionSheet{Title: assignment.Title, DueDate: assignment.DueDate, Questions: questions}
	if subject, err := s.subjects.FindByID(ctx, assignment.SubjectID); err == nil {
		sheet.Subject = subject.Name
	}
	body, err := s.exporter.Render(sheet)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render assignment")
	}
	return body, assignment, nil
}
