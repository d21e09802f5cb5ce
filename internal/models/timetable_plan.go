package models

import "time"

// TimetablePlan is a named candidate weekly schedule of a term.
type TimetablePlan struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TimetablePlanSlot is one cell of a plan. A nil subject marks a free slot.
type TimetablePlanSlot struct {
	ID              string    `db:"id" json:"id"`
	TimetablePlanID string    `db:"timetable_plan_id" json:"timetable_plan_id"`
	Weekday         int       `db:"weekday" json:"weekday"`
	DaySlotIndex    int       `db:"day_slot_index" json:"day_slot_index"`
	SubjectID       *string   `db:"subject_id" json:"subject_id"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
