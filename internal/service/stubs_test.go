package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

type ledgerStub struct {
	mu      sync.Mutex
	absent  map[string][]time.Time
	err     error
	windows [][2]time.Time
	execs   []sqlx.ExtContext
	upserts []models.AttendanceRecord
	history []models.AttendanceHistoryEntry
	over    []models.SubjectAbsence
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{absent: map[string][]time.Time{}}
}

func (s *ledgerStub) addAbsences(studentID, subjectID string, dates ...time.Time) {
	key := studentID + "|" + subjectID
	s.absent[key] = append(s.absent[key], dates...)
}

func (s *ledgerStub) AbsenceDates(ctx context.Context, exec sqlx.ExtContext, studentID, subjectID string, since, until time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, [2]time.Time{since, until})
	s.execs = append(s.execs, exec)
	if s.err != nil {
		return nil, s.err
	}
	var out []time.Time
	for _, d := range s.absent[studentID+"|"+subjectID] {
		if !d.Before(since) && !d.After(until) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *ledgerStub) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserts = append(s.upserts, *record)
	if record.Status == models.AttendanceStatusAbsent {
		key := record.StudentID + "|" + record.SubjectID
		s.absent[key] = append(s.absent[key], record.Date)
	}
	return nil
}

func (s *ledgerStub) SubjectsOverThreshold(ctx context.Context, studentID string, since, until time.Time, threshold int) ([]models.SubjectAbsence, error) {
	return s.over, s.err
}

func (s *ledgerStub) History(ctx context.Context, studentID string, since time.Time) ([]models.AttendanceHistoryEntry, error) {
	return s.history, s.err
}

type studentStub struct {
	students map[string]*models.StudentWithMentor
	err      error
	resets   []string
	resetErr error
}

func (s *studentStub) FindWithMentor(ctx context.Context, id string) (*models.StudentWithMentor, error) {
	if s.err != nil {
		return nil, s.err
	}
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *studentStub) ResetInactivity(ctx context.Context, id string, at time.Time) error {
	s.resets = append(s.resets, id)
	return s.resetErr
}

type subjectStub struct {
	subjects map[string]*models.Subject
	current  *models.CurrentClass
	err      error
}

func (s *subjectStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sub, ok := s.subjects[id]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectStub) CurrentClass(ctx context.Context, classID string, at time.Time) (*models.CurrentClass, error) {
	if s.current == nil {
		return nil, sql.ErrNoRows
	}
	return s.current, nil
}

type dispatcherStub struct {
	mu     sync.Mutex
	events []models.NotificationEvent
	fail   bool
}

func (d *dispatcherStub) Dispatch(ctx context.Context, event models.NotificationEvent) <-chan models.DeliveryResult {
	d.mu.Lock()
	d.events = append(d.events, event)
	d.mu.Unlock()
	out := make(chan models.DeliveryResult, 1)
	res := models.DeliveryResult{Recipient: event.Recipient, Trigger: event.Trigger, Delivered: !d.fail, Attempts: 1}
	if d.fail {
		res.Error = "gateway down"
	}
	out <- res
	close(out)
	return out
}

func (d *dispatcherStub) sent() []models.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.NotificationEvent, len(d.events))
	copy(out, d.events)
	return out
}

type recoveryStub struct {
	calls  []string
	starts []time.Time
	result *models.RecoveryResult
	err    error
}

func (r *recoveryStub) EnsureRecoveryAssignment(ctx context.Context, subjectID, studentID string, windowStart time.Time) (*models.RecoveryResult, error) {
	r.calls = append(r.calls, subjectID+"|"+studentID)
	r.starts = append(r.starts, windowStart)
	if r.err != nil {
		return nil, r.err
	}
	if r.result != nil {
		return r.result, nil
	}
	return &models.RecoveryResult{Outcome: models.RecoveryCreated}, nil
}

func strPtr(s string) *string { return &s }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
