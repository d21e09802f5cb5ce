package models

import "time"

// FixedTimetableSlot is one cell of the date-independent weekly template of a term.
type FixedTimetableSlot struct {
	ID           string    `db:"id" json:"id"`
	TermID       string    `db:"term_id" json:"term_id"`
	Weekday      int       `db:"weekday" json:"weekday"`
	DaySlotIndex int       `db:"day_slot_index" json:"day_slot_index"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	Name         *string   `db:"name" json:"name,omitempty"`
	Note         *string   `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
