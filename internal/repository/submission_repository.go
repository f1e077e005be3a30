package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

// SubmissionRepository stores assignment submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// CreateAndComplete records the submission and marks the assignment completed
// in one transaction. A repeat submission returns ErrDuplicateKey.
func (r *SubmissionRepository) CreateAndComplete(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmissionDate.IsZero() {
		sub.SubmissionDate = time.Now().UTC()
	}
	if sub.Status == "" {
		sub.Status = models.SubmissionStatusSubmitted
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `
INSERT INTO assignment_submissions (id, assignment_id, student_id, file_path, status, submission_date)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insert, sub.ID, sub.AssignmentID, sub.StudentID, sub.FilePath, sub.Status, sub.SubmissionDate); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert submission: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE assignments SET status = $2 WHERE id = $1`, sub.AssignmentID, models.AssignmentStatusCompleted); err != nil {
		return fmt.Errorf("complete assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}
