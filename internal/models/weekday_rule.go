package models

// Weekday indexes follow ISO numbering.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
	Sunday    = 7
)

// SchoolWeekdays are the weekdays lessons can be planned on.
var SchoolWeekdays = []int{Monday, Tuesday, Wednesday, Thursday, Friday}

// WeekdayRule holds the default slot capacity of a weekday within a term.
type WeekdayRule struct {
	ID               string `db:"id" json:"id"`
	TermID           string `db:"term_id" json:"term_id"`
	Weekday          int    `db:"weekday" json:"weekday"`
	DefaultSlotCount int    `db:"default_slot_count" json:"default_slot_count"`
}
