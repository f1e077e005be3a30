package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/vision"
)

const clockLayout = "03:04 PM"

type inactivityStudents interface {
	FindWithMentor(ctx context.Context, id string) (*models.StudentWithMentor, error)
	ResetInactivity(ctx context.Context, id string, at time.Time) error
}

type scheduleReader interface {
	CurrentClass(ctx context.Context, classID string, at time.Time) (*models.CurrentClass, error)
}

type streakStore interface {
	Enabled() bool
	IncrementStreak(ctx context.Context, studentID, sessionID string) (int, error)
	ResetStreak(ctx context.Context, studentID, sessionID string) error
}

// FrameAnalysis is the result of classifying one webcam frame.
type FrameAnalysis struct {
	Engaged  bool
	Decision *models.InactivityDecision
}

// InactivityService escalates prolonged disengagement to the student's mentor.
type InactivityService struct {
	students   inactivityStudents
	schedule   scheduleReader
	notifier   notificationDispatcher
	classifier vision.Classifier
	sessions   streakStore
	metrics    evaluationMetrics
	logger     *zap.Logger
	threshold  int
	now        func() time.Time
}

// NewInactivityService wires the policy. sessions may be nil, in which case
// the client-held counter is always used.
func NewInactivityService(
	students inactivityStudents,
	schedule scheduleReader,
	notifier notificationDispatcher,
	classifier vision.Classifier,
	sessions streakStore,
	metrics evaluationMetrics,
	logger *zap.Logger,
	threshold int,
) *InactivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if threshold <= 0 {
		threshold = 5
	}
	return &InactivityService{
		students:   students,
		schedule:   schedule,
		notifier:   notifier,
		classifier: classifier,
		sessions:   sessions,
		metrics:    metrics,
		logger:     logger,
		threshold:  threshold,
		now:        time.Now,
	}
}

// EvaluateInactivity applies the inactivity rule to one check. count is the
// number of consecutive inactive checks before this one.
func (s *InactivityService) EvaluateInactivity(ctx context.Context, studentID string, engaged bool, count int) (*models.InactivityDecision, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if count < 0 {
		count = 0
	}
	if engaged {
		return &models.InactivityDecision{Engaged: true, NextCount: 0}, nil
	}

	crossed := count >= s.threshold
	s.metrics.RecordEvaluation("inactivity", crossed)
	if !crossed {
		return &models.InactivityDecision{NextCount: count + 1}, nil
	}

	log := s.logger.With(zap.String("student_id", studentID), zap.Int("inactivity_count", count))
	student, err := s.students.FindWithMentor(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Persistence(err, "failed to load student")
	}

	phone := models.Deref(student.MentorPhone)
	if phone == "" {
		log.Info("inactivity alert skipped: no mentor phone")
		return &models.InactivityDecision{NextCount: count + 1}, nil
	}

	now := s.now()
	var current *models.CurrentClass
	if student.ClassID != "" {
		current, err = s.schedule.CurrentClass(ctx, student.ClassID, now)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Warn("current class lookup failed", zap.Error(err))
		}
		if err != nil {
			current = nil
		}
	}

	body := inactivityMessage(student.Name, current, now, count)
	result := <-s.notifier.Dispatch(ctx, models.NotificationEvent{
		Recipient: phone,
		Body:      body,
		Trigger:   models.TriggerInactivity,
	})
	if !result.Delivered {
		return nil, appErrors.Upstream(errors.New(result.Error), "failed to notify mentor")
	}

	if err := s.students.ResetInactivity(ctx, studentID, now.UTC()); err != nil {
		return nil, appErrors.Persistence(err, "failed to reset inactivity")
	}
	log.Info("mentor notified of inactivity", zap.String("message_id", result.MessageID))

	return &models.InactivityDecision{
		Notified:    true,
		ShouldReset: true,
		Message:     fmt.Sprintf("Alert SMS sent to mentor %s", models.Deref(student.MentorName)),
		NextCount:   0,
	}, nil
}

// AnalyzeFrame classifies frame and evaluates the resulting streak. With a
// session id and an enabled store the server-side streak replaces clientCount.
func (s *InactivityService) AnalyzeFrame(ctx context.Context, studentID, sessionID string, frame []byte, clientCount int) (*FrameAnalysis, error) {
	if len(frame) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "frame is required")
	}
	if s.classifier == nil {
		return nil, appErrors.Upstream(errors.New("classifier not configured"), "engagement classifier unavailable")
	}
	engaged, err := s.classifier.Detect(ctx, frame)
	if err != nil {
		return nil, appErrors.Upstream(err, "engagement classifier unavailable")
	}

	count := clientCount
	tracked := sessionID != "" && s.sessions != nil && s.sessions.Enabled()
	if tracked {
		if engaged {
			if err := s.sessions.ResetStreak(ctx, studentID, sessionID); err != nil {
				s.logger.Warn("reset inactivity streak", zap.Error(err))
			}
			count = 0
		} else if n, err := s.sessions.IncrementStreak(ctx, studentID, sessionID); err != nil {
			s.logger.Warn("increment inactivity streak, using client counter", zap.Error(err))
		} else {
			count = n - 1
		}
	}

	decision, err := s.EvaluateInactivity(ctx, studentID, engaged, count)
	if err != nil {
		return nil, err
	}
	if tracked && decision.ShouldReset {
		if err := s.sessions.ResetStreak(ctx, studentID, sessionID); err != nil {
			s.logger.Warn("reset inactivity streak", zap.Error(err))
		}
	}
	return &FrameAnalysis{Engaged: engaged, Decision: decision}, nil
}

func inactivityMessage(student string, current *models.CurrentClass, at time.Time, count int) string {
	var b strings.Builder
	b.WriteString("STUDENT INACTIVITY ALERT!\n")
	fmt.Fprintf(&b, "Student: %s\n", student)
	if current != nil {
		fmt.Fprintf(&b, "Current Class: %s (%s)\n", current.SubjectName, current.SubjectCode)
		fmt.Fprintf(&b, "Teacher: %s\n", current.TeacherName)
		fmt.Fprintf(&b, "Class Time: %s - %s\n", clock(current.StartTime), clock(current.EndTime))
		fmt.Fprintf(&b, "Alert Time: %s\n", at.Format(clockLayout))
		fmt.Fprintf(&b, "Status: Student has been inactive for %d consecutive checks.", count)
		return b.String()
	}
	fmt.Fprintf(&b, "Time: %s\n", at.Format(clockLayout))
	fmt.Fprintf(&b, "Status: Student has been inactive for %d consecutive checks.\n", count)
	b.WriteString("Note: No scheduled class found at this time.")
	return b.String()
}

// clock renders an HH:MM schedule time on a 12-hour clock.
func clock(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format(clockLayout)
}
