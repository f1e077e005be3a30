package dto

// EvaluateAbsenceRequest triggers an absence evaluation. Date defaults to today.
type EvaluateAbsenceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// EnsureRecoveryRequest asks for the recovery assignment of a subject.
type EnsureRecoveryRequest struct {
	StudentID string `json:"student_id" validate:"required"`
}

// InactivityRequest evaluates an already classified signal.
type InactivityRequest struct {
	StudentID       string `json:"student_id" validate:"required"`
	Engaged         *bool  `json:"engaged" validate:"required"`
	InactivityCount int    `json:"inactivity_count" validate:"gte=0"`
}

// AnalyzeStreamForm is the multipart form of the frame analysis endpoint.
type AnalyzeStreamForm struct {
	StudentID       string `form:"student_id" validate:"required"`
	SessionID       string `form:"session_id"`
	InactivityCount int    `form:"inactivity_count" validate:"gte=0"`
}

// AnalyzeStreamResponse mirrors the fields the classroom client consumes.
type AnalyzeStreamResponse struct {
	Expression          string `json:"expression"`
	Message             string `json:"message"`
	NotificationSent    bool   `json:"notification_sent"`
	NotificationMessage string `json:"notification_message,omitempty"`
	ShouldReset         bool   `json:"should_reset"`
	InactivityCount     int    `json:"inactivity_count"`
}
