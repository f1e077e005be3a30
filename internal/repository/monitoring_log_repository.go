package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

// MonitoringLogRepository stores engagement observations.
type MonitoringLogRepository struct {
	db *sqlx.DB
}

// NewMonitoringLogRepository constructs the repository.
func NewMonitoringLogRepository(db *sqlx.DB) *MonitoringLogRepository {
	return &MonitoringLogRepository{db: db}
}

func (r *MonitoringLogRepository) Create(ctx context.Context, log *models.MonitoringLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO class_monitoring_logs (id, student_id, subject_id, status, timestamp) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, log.ID, log.StudentID, log.SubjectID, log.Status, log.Timestamp); err != nil {
		return fmt.Errorf("insert monitoring log: %w", err)
	}
	return nil
}

// List returns a page of logs, newest first, with the total matching count.
func (r *MonitoringLogRepository) List(ctx context.Context, filter models.MonitoringLogFilter) ([]models.MonitoringLogView, int, error) {
	where := strings.Builder{}
	where.WriteString(" WHERE 1=1")
	args := []interface{}{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		fmt.Fprintf(&where, " AND l.student_id = $%d", len(args))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		fmt.Fprintf(&where, " AND l.subject_id = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM class_monitoring_logs l` + where.String()
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count monitoring logs: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	args = append(args, size, (page-1)*size)
	listQuery := fmt.Sprintf(`
SELECT l.id, l.student_id, l.subject_id, l.status, l.timestamp, st.name AS student_name, s.name AS subject_name
FROM class_monitoring_logs l
JOIN students st ON st.id = l.student_id
LEFT JOIN subjects s ON s.id = l.subject_id%s
ORDER BY l.timestamp DESC
LIMIT $%d OFFSET $%d`, where.String(), len(args)-1, len(args))

	var rows []models.MonitoringLogView
	if err := r.db.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list monitoring logs: %w", err)
	}
	return rows, total, nil
}
