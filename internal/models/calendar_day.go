package models

import "time"

// DayType classifies a calendar day of a term.
type DayType string

const (
	DayTypeNormal      DayType = "NORMAL"
	DayTypeWeeklyOff   DayType = "WEEKLY_OFF"
	DayTypeHoliday     DayType = "HOLIDAY"
	DayTypeSchoolEvent DayType = "SCHOOL_EVENT"
)

// InstructionalDayTypes lists the day types on which lessons take place.
var InstructionalDayTypes = []DayType{DayTypeNormal, DayTypeSchoolEvent}

// IsInstructional reports whether lessons are held on days of this type.
func (t DayType) IsInstructional() bool {
	return t == DayTypeNormal || t == DayTypeSchoolEvent
}

// CalendarDay is one dated entry of a term calendar.
type CalendarDay struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"term_id"`
	Date      time.Time `db:"date" json:"date"`
	DayType   DayType   `db:"day_type" json:"day_type"`
	SlotCount int       `db:"slot_count" json:"slot_count"`
	Title     *string   `db:"title" json:"title,omitempty"`
}

// Weekday returns the ISO weekday of the calendar date (1=Monday..7=Sunday).
func (d CalendarDay) Weekday() int {
	wd := int(d.Date.UTC().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
