package models

import "time"

// AbsenceWindow is the outcome of counting absences over one trailing window.
type AbsenceWindow struct {
	WindowDays int         `json:"window_days"`
	Threshold  int         `json:"threshold"`
	Since      time.Time   `json:"since"`
	Until      time.Time   `json:"until"`
	Count      int         `json:"count"`
	Dates      []time.Time `json:"dates"`
	Crossed    bool        `json:"crossed"`
}

// AbsenceAssessment holds both window counts for one student and subject.
type AbsenceAssessment struct {
	StudentID  string        `json:"student_id"`
	SubjectID  string        `json:"subject_id"`
	Reference  time.Time     `json:"reference"`
	Assignment AbsenceWindow `json:"assignment_window"`
	SMS        AbsenceWindow `json:"sms_window"`
}

// AbsenceEvaluation is an assessment plus the side effects it triggered.
// Notifications are queued, not necessarily delivered.
type AbsenceEvaluation struct {
	AbsenceAssessment
	Recovery      *RecoveryResult     `json:"recovery,omitempty"`
	Notifications []NotificationEvent `json:"notifications_queued,omitempty"`
}

// InactivityDecision is the outcome of one inactivity evaluation.
type InactivityDecision struct {
	Engaged     bool   `json:"engaged"`
	Notified    bool   `json:"notification_sent"`
	ShouldReset bool   `json:"should_reset"`
	Message     string `json:"notification_message,omitempty"`
	NextCount   int    `json:"inactivity_count"`
}

// TriggerKind names the rule that produced a notification.
type TriggerKind string

const (
	TriggerAbsenceStudent TriggerKind = "absence_student"
	TriggerAbsenceParent  TriggerKind = "absence_parent"
	TriggerInactivity     TriggerKind = "inactivity_mentor"
)

// NotificationEvent is an outbound message. It is never persisted.
type NotificationEvent struct {
	Recipient string      `json:"recipient"`
	Channel   string      `json:"channel"`
	Body      string      `json:"body"`
	Trigger   TriggerKind `json:"trigger_kind"`
}

// DeliveryResult reports what happened to a NotificationEvent.
type DeliveryResult struct {
	Recipient string      `json:"recipient"`
	Trigger   TriggerKind `json:"trigger_kind"`
	Delivered bool        `json:"delivered"`
	MessageID string      `json:"message_id,omitempty"`
	Error     string      `json:"error,omitempty"`
	Attempts  int         `json:"attempts"`
}
