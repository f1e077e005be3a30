package models

import "time"

// Student is the subset of the student profile the escalation engine reads.
type Student struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	RollNumber      string     `db:"roll_number" json:"roll_number"`
	ClassID         string     `db:"class_id" json:"class_id"`
	StudentPhone    *string    `db:"student_phone" json:"student_phone,omitempty"`
	ParentPhone     *string    `db:"parent_phone" json:"parent_phone,omitempty"`
	MentorID        *string    `db:"mentor_id" json:"mentor_id,omitempty"`
	InactivityCount int        `db:"inactivity_count" json:"inactivity_count"`
	LastActive      *time.Time `db:"last_active" json:"last_active,omitempty"`
}

// StudentWithMentor joins the student with the assigned mentor, if any.
type StudentWithMentor struct {
	Student
	MentorName  *string `db:"mentor_name" json:"mentor_name,omitempty"`
	MentorPhone *string `db:"mentor_phone" json:"mentor_phone,omitempty"`
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
