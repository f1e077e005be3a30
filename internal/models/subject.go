package models

// Subject is a taught course owned by exactly one teacher.
type Subject struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Code      string `db:"code" json:"code"`
	ClassID   string `db:"class_id" json:"class_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
}

// CurrentClass is the subject scheduled for a class at a given instant.
type CurrentClass struct {
	SubjectID   string `db:"subject_id" json:"subject_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	SubjectCode string `db:"subject_code" json:"subject_code"`
	TeacherID   string `db:"teacher_id" json:"teacher_id"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	StartTime   string `db:"start_time" json:"start_time"`
	EndTime     string `db:"end_time" json:"end_time"`
}
