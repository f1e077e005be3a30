package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

// ErrRequestNotPending is returned when a resolve targets a request that already left pending.
var ErrRequestNotPending = errors.New("attendance request is not pending")

// AttendanceRequestRepository persists the request workflow.
type AttendanceRequestRepository struct {
	db *sqlx.DB
}

// NewAttendanceRequestRepository constructs the repository.
func NewAttendanceRequestRepository(db *sqlx.DB) *AttendanceRequestRepository {
	return &AttendanceRequestRepository{db: db}
}

func (r *AttendanceRequestRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a pending request. A second request for the same student,
// subject and day returns ErrDuplicateKey.
func (r *AttendanceRequestRepository) Create(ctx context.Context, req *models.AttendanceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestTime.IsZero() {
		req.RequestTime = time.Now().UTC()
	}
	req.Status = models.RequestStatusPending

	const query = `
INSERT INTO attendance_requests (id, student_id, subject_id, teacher_id, class_date, status, request_time)
VALUES ($1, $2, $3, $4, $5::date, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query,
		req.ID, req.StudentID, req.SubjectID, req.TeacherID, dateOnly(req.ClassDate), req.Status, req.RequestTime,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert attendance request: %w", err)
	}
	return nil
}

// LockForResolution loads the request with its subject owner and holds a row
// lock until exec's transaction ends. Returns sql.ErrNoRows for unknown ids.
func (r *AttendanceRequestRepository) LockForResolution(ctx context.Context, exec sqlx.ExtContext, id string) (*models.RequestOwnership, error) {
	const query = `
SELECT ar.id, ar.student_id, ar.subject_id, ar.teacher_id, ar.class_date, ar.status, ar.request_time, ar.response_time,
	s.teacher_id AS subject_teacher_id, s.name AS subject_name
FROM attendance_requests ar
JOIN subjects s ON s.id = ar.subject_id
WHERE ar.id = $1
FOR UPDATE OF ar`
	var row models.RequestOwnership
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// Resolve moves a pending request to status. Only pending rows are touched.
func (r *AttendanceRequestRepository) Resolve(ctx context.Context, exec sqlx.ExtContext, id string, status models.RequestStatus, at time.Time) error {
	const query = `
UPDATE attendance_requests SET status = $2, response_time = $3
WHERE id = $1 AND status = 'pending'`
	res, err := r.exec(exec).ExecContext(ctx, query, id, status, at)
	if err != nil {
		return fmt.Errorf("resolve attendance request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve attendance request: %w", err)
	}
	if affected == 0 {
		return ErrRequestNotPending
	}
	return nil
}

// ListForTeacher returns the requests for subjects taught by teacherID on date.
func (r *AttendanceRequestRepository) ListForTeacher(ctx context.Context, teacherID string, date time.Time) ([]models.AttendanceRequestView, error) {
	const query = `
SELECT ar.id, ar.student_id, ar.subject_id, ar.teacher_id, ar.class_date, ar.status, ar.request_time, ar.response_time,
	st.name AS student_name, st.roll_number, s.name AS subject_name, s.code AS subject_code
FROM attendance_requests ar
JOIN students st ON st.id = ar.student_id
JOIN subjects s ON s.id = ar.subject_id
WHERE s.teacher_id = $1 AND ar.class_date = $2::date
ORDER BY ar.request_time DESC`
	var rows []models.AttendanceRequestView
	if err := r.db.SelectContext(ctx, &rows, query, teacherID, dateOnly(date)); err != nil {
		return nil, fmt.Errorf("list attendance requests: %w", err)
	}
	return rows, nil
}
