package dto

// CreateAttendanceRequest is sent by a student claiming presence in today's class.
// StudentID is taken from the token for students.
type CreateAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
}

// RespondAttendanceRequest carries the teacher's decision.
type RespondAttendanceRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// MarkPresentRequest records presence for the class currently in session.
type MarkPresentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}
