package models

import "time"

// AttendanceStatus is the ledger value for a student/subject/day.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceRecord is one row of the attendance ledger. The (student, subject, date)
// triple is unique.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	SubjectID string           `db:"subject_id" json:"subject_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceHistoryEntry is a ledger row joined with its subject.
type AttendanceHistoryEntry struct {
	Date        time.Time        `db:"date" json:"date"`
	SubjectID   string           `db:"subject_id" json:"subject_id"`
	SubjectName string           `db:"subject_name" json:"subject_name"`
	SubjectCode string           `db:"subject_code" json:"subject_code"`
	Status      AttendanceStatus `db:"status" json:"status"`
}

// SubjectAbsence is a subject with its absence count inside a window.
type SubjectAbsence struct {
	SubjectID    string `db:"subject_id" json:"subject_id"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	AbsenceCount int    `db:"absence_count" json:"absence_count"`
}
