package models

// RequiredLessonCount is the mandated number of lessons of a subject over a term.
type RequiredLessonCount struct {
	ID            string `db:"id" json:"id"`
	TermID        string `db:"term_id" json:"term_id"`
	SubjectID     string `db:"subject_id" json:"subject_id"`
	SubjectName   string `db:"subject_name" json:"subject_name,omitempty"`
	RequiredCount int    `db:"required_count" json:"required_count"`
}
