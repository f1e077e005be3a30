package dto

// CreateMonitoringLogRequest stores one engagement observation.
type CreateMonitoringLogRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id"`
	Status    string `json:"status" validate:"required,oneof=active inactive"`
}
