package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

// AttendanceRepository is the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

func (r *AttendanceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Upsert writes the status for (student, subject, date). The unique key decides
// the row; the last writer wins.
func (r *AttendanceRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, record *models.AttendanceRecord) error {
	if record == nil {
		return fmt.Errorf("attendance record is nil")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.UpdatedAt = now
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	const query = `
INSERT INTO attendance (id, student_id, subject_id, date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4::date, $5, $6, $7)
ON CONFLICT (student_id, subject_id, date)
DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		record.ID, record.StudentID, record.SubjectID, dateOnly(record.Date), record.Status, record.CreatedAt, record.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// AbsenceDates returns the absent dates for student and subject within
// [since, until], both inclusive, ascending.
func (r *AttendanceRepository) AbsenceDates(ctx context.Context, exec sqlx.ExtContext, studentID, subjectID string, since, until time.Time) ([]time.Time, error) {
	const query = `
SELECT date FROM attendance
WHERE student_id = $1 AND subject_id = $2 AND status = 'absent'
	AND date BETWEEN $3::date AND $4::date
ORDER BY date ASC`
	var dates []time.Time
	if err := sqlx.SelectContext(ctx, r.exec(exec), &dates, query, studentID, subjectID, dateOnly(since), dateOnly(until)); err != nil {
		return nil, fmt.Errorf("count absences: %w", err)
	}
	return dates, nil
}

// SubjectsOverThreshold lists the student's subjects with at least threshold
// absences within [since, until].
func (r *AttendanceRepository) SubjectsOverThreshold(ctx context.Context, studentID string, since, until time.Time, threshold int) ([]models.SubjectAbsence, error) {
	const query = `
SELECT s.id AS subject_id, s.name AS subject_name, s.code AS subject_code, COUNT(*) AS absence_count
FROM attendance a
JOIN subjects s ON s.id = a.subject_id
WHERE a.student_id = $1 AND a.status = 'absent'
	AND a.date BETWEEN $2::date AND $3::date
GROUP BY s.id, s.name, s.code
HAVING COUNT(*) >= $4
ORDER BY s.name ASC`
	var rows []models.SubjectAbsence
	if err := r.db.SelectContext(ctx, &rows, query, studentID, dateOnly(since), dateOnly(until), threshold); err != nil {
		return nil, fmt.Errorf("list subjects over absence threshold: %w", err)
	}
	return rows, nil
}

// History returns the student's ledger rows on or after since, newest first.
func (r *AttendanceRepository) History(ctx context.Context, studentID string, since time.Time) ([]models.AttendanceHistoryEntry, error) {
	const query = `
SELECT a.date, a.subject_id, s.name AS subject_name, s.code AS subject_code, a.status
FROM attendance a
JOIN subjects s ON s.id = a.subject_id
WHERE a.student_id = $1 AND a.date >= $2::date
ORDER BY a.date DESC, s.name ASC`
	var rows []models.AttendanceHistoryEntry
	if err := r.db.SelectContext(ctx, &rows, query, studentID, dateOnly(since)); err != nil {
		return nil, fmt.Errorf("list attendance history: %w", err)
	}
	return rows, nil
}

func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}
