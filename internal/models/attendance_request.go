package models

import "time"

// RequestStatus is the lifecycle state of an attendance request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Decision is a teacher's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Valid reports whether d is approve or reject.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// RequestStatus maps the decision onto the terminal request state.
func (d Decision) RequestStatus() RequestStatus {
	if d == DecisionApprove {
		return RequestStatusApproved
	}
	return RequestStatusRejected
}

// AttendanceStatus maps the decision onto the ledger value.
func (d Decision) AttendanceStatus() AttendanceStatus {
	if d == DecisionApprove {
		return AttendanceStatusPresent
	}
	return AttendanceStatusAbsent
}

// AttendanceRequest is a student's claim of presence awaiting a teacher.
type AttendanceRequest struct {
	ID           string        `db:"id" json:"id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	SubjectID    string        `db:"subject_id" json:"subject_id"`
	TeacherID    string        `db:"teacher_id" json:"teacher_id"`
	ClassDate    time.Time     `db:"class_date" json:"class_date"`
	Status       RequestStatus `db:"status" json:"status"`
	RequestTime  time.Time     `db:"request_time" json:"request_time"`
	ResponseTime *time.Time    `db:"response_time" json:"response_time,omitempty"`
}

// AttendanceRequestView is the teacher-facing listing row.
type AttendanceRequestView struct {
	AttendanceRequest
	StudentName string `db:"student_name" json:"student_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
}

// RequestOwnership is the request row locked together with the subject's teacher.
type RequestOwnership struct {
	AttendanceRequest
	SubjectTeacherID string `db:"subject_teacher_id"`
	SubjectName      string `db:"subject_name"`
}

// ResolutionResult is returned once a request leaves pending.
type ResolutionResult struct {
	Request    AttendanceRequest  `json:"request"`
	Escalation *AbsenceEvaluation `json:"escalation,omitempty"`
}
