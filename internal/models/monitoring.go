package models

import "time"

// MonitoringLog is one engagement observation recorded during class.
type MonitoringLog struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID *string   `db:"subject_id" json:"subject_id,omitempty"`
	Status    string    `db:"status" json:"status"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// MonitoringLogView adds display names for listings.
type MonitoringLogView struct {
	MonitoringLog
	StudentName string  `db:"student_name" json:"student_name"`
	SubjectName *string `db:"subject_name" json:"subject_name,omitempty"`
}

// MonitoringLogFilter narrows log listings.
type MonitoringLogFilter struct {
	StudentID string
	SubjectID string
	Page      int
	PageSize  int
}
