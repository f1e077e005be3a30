package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

// SubjectRepository reads subjects and their weekly schedule.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns sql.ErrNoRows for unknown ids.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `SELECT id, name, code, class_id, teacher_id FROM subjects WHERE id = $1`
	var s models.Subject
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// CurrentClass returns the subject scheduled for classID at the given local
// instant. Days are numbered Monday=1 through Sunday=7. Returns sql.ErrNoRows
// when nothing is scheduled.
func (r *SubjectRepository) CurrentClass(ctx context.Context, classID string, at time.Time) (*models.CurrentClass, error) {
	const query = `
SELECT s.id AS subject_id, s.name AS subject_name, s.code AS subject_code, s.teacher_id, t.name AS teacher_name,
	to_char(ss.start_time, 'HH24:MI') AS start_time, to_char(ss.end_time, 'HH24:MI') AS end_time
FROM subject_schedule ss
JOIN subjects s ON s.id = ss.subject_id
JOIN teachers t ON t.id = s.teacher_id
WHERE s.class_id = $1 AND ss.day_of_week = $2
	AND $3::time BETWEEN ss.start_time AND ss.end_time
ORDER BY ss.start_time ASC
LIMIT 1`
	var c models.CurrentClass
	if err := r.db.GetContext(ctx, &c, query, classID, isoWeekday(at), at.Format("15:04:05")); err != nil {
		return nil, err
	}
	return &c, nil
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}
