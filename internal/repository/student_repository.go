package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

// StudentRepository reads student contact data and owns the inactivity counter.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindWithMentor loads the student and its mentor. Students without a mentor
// come back with nil mentor fields. Returns sql.ErrNoRows for unknown ids.
func (r *StudentRepository) FindWithMentor(ctx context.Context, id string) (*models.StudentWithMentor, error) {
	const query = `
SELECT st.id, st.name, st.roll_number, st.class_id, st.student_phone, st.parent_phone, st.mentor_id,
	st.inactivity_count, st.last_active, m.name AS mentor_name, m.phone_number AS mentor_phone
FROM students st
LEFT JOIN mentors m ON m.id = st.mentor_id
WHERE st.id = $1`
	var row models.StudentWithMentor
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ResetInactivity zeroes the stored counter and stamps last_active.
func (r *StudentRepository) ResetInactivity(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE students SET inactivity_count = 0, last_active = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("reset inactivity: %w", err)
	}
	return nil
}
