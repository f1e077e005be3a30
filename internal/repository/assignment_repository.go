package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

const assignmentColumns = `id, subject_id, title, description, due_date, status, kind, created_at`

// AssignmentRepository persists assignments, including generated recovery work.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindRecentRecovery returns the newest recovery assignment for subject created
// at or after since, or nil when there is none.
func (r *AssignmentRepository) FindRecentRecovery(ctx context.Context, exec sqlx.ExtContext, subjectID string, since time.Time) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments
WHERE subject_id = $1 AND kind = 'recovery' AND created_at >= $2
ORDER BY created_at DESC LIMIT 1`
	var a models.Assignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &a, query, subjectID, since); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find recovery assignment: %w", err)
	}
	return &a, nil
}

// CreateRecovery inserts a unless another recovery assignment for the subject
// appeared since since. The check and insert run under a transaction-scoped
// advisory lock keyed by subject. When a concurrent writer won, created is
// false and the winning row is returned.
func (r *AssignmentRepository) CreateRecovery(ctx context.Context, a *models.Assignment, since time.Time) (*models.Assignment, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin recovery assignment tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "recovery:"+a.SubjectID); err != nil {
		return nil, false, fmt.Errorf("lock recovery assignment: %w", err)
	}

	existing, err := r.FindRecentRecovery(ctx, tx, a.SubjectID, since)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit recovery assignment tx: %w", err)
		}
		return existing, false, nil
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Kind = models.AssignmentKindRecovery
	if a.Status == "" {
		a.Status = models.AssignmentStatusPending
	}

	const insert = `
INSERT INTO assignments (id, subject_id, title, description, due_date, status, kind, created_at)
VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, insert,
		a.ID, a.SubjectID, a.Title, a.Description, dateOnly(a.DueDate), a.Status, a.Kind, a.CreatedAt,
	); err != nil {
		return nil, false, fmt.Errorf("insert recovery assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit recovery assignment tx: %w", err)
	}
	return a, true, nil
}

// FindByID returns sql.ErrNoRows for unknown ids.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// SubmittedBy reports whether student has a submission for assignment.
func (r *AssignmentRepository) SubmittedBy(ctx context.Context, assignmentID, studentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM assignment_submissions WHERE assignment_id = $1 AND student_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, assignmentID, studentID); err != nil {
		return false, fmt.Errorf("check submission: %w", err)
	}
	return exists, nil
}
