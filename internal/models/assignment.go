package models

import (
	"encoding/json"
	"time"
)

// AssignmentKind separates generated recovery work from regular assignments.
type AssignmentKind string

const (
	AssignmentKindRegular  AssignmentKind = "regular"
	AssignmentKindRecovery AssignmentKind = "recovery"
)

const (
	AssignmentStatusPending   = "pending"
	AssignmentStatusCompleted = "completed"
	SubmissionStatusSubmitted = "submitted"
)

// Assignment is a task attached to a subject. Recovery assignments keep their
// questions as a JSON array in Description.
type Assignment struct {
	ID          string         `db:"id" json:"id"`
	SubjectID   string         `db:"subject_id" json:"subject_id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"-"`
	DueDate     time.Time      `db:"due_date" json:"due_date"`
	Status      string         `db:"status" json:"status"`
	Kind        AssignmentKind `db:"kind" json:"kind"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Questions decodes the stored question list. Legacy plain-text descriptions
// come back as a single question.
func (a Assignment) Questions() []string {
	var questions []string
	if err := json.Unmarshal([]byte(a.Description), &questions); err == nil {
		return questions
	}
	if a.Description == "" {
		return nil
	}
	return []string{a.Description}
}

// RecoveryOutcome says how EnsureRecoveryAssignment resolved.
type RecoveryOutcome string

const (
	RecoveryExisting            RecoveryOutcome = "existing"
	RecoveryCreated             RecoveryOutcome = "created"
	RecoveryDuplicateSuppressed RecoveryOutcome = "duplicate_suppressed"
	RecoverySkipped             RecoveryOutcome = "skipped"
)

// RecoveryResult carries the assignment (absent when skipped or suppressed
// without a winner row) and its questions.
type RecoveryResult struct {
	Assignment *Assignment     `json:"assignment,omitempty"`
	Questions  []string        `json:"questions,omitempty"`
	Outcome    RecoveryOutcome `json:"outcome"`
}

// StudentRecoveryAssignment is the student-facing listing row.
type StudentRecoveryAssignment struct {
	Assignment
	SubjectName  string   `json:"subject_name"`
	SubjectCode  string   `json:"subject_code"`
	AbsenceCount int      `json:"absence_count"`
	Questions    []string `json:"questions"`
	IsSubmitted  bool     `json:"is_submitted"`
}

// Submission is a student's uploaded answer file.
type Submission struct {
	ID             string    `db:"id" json:"id"`
	AssignmentID   string    `db:"assignment_id" json:"assignment_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	FilePath       string    `db:"file_path" json:"file_path"`
	Status         string    `db:"status" json:"status"`
	SubmissionDate time.Time `db:"submission_date" json:"submission_date"`
}
