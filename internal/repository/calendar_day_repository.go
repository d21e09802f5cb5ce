package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// CalendarDayRepository reads term calendars.
type CalendarDayRepository struct {
	db *sqlx.DB
}

// NewCalendarDayRepository builds repository.
func NewCalendarDayRepository(db *sqlx.DB) *CalendarDayRepository {
	return &CalendarDayRepository{db: db}
}

// ListInstructionalByTerm returns the days of a term on which lessons are held, by date.
func (r *CalendarDayRepository) ListInstructionalByTerm(ctx context.Context, termID string) ([]models.CalendarDay, error) {
	types := make([]string, 0, len(models.InstructionalDayTypes))
	for _, t := range models.InstructionalDayTypes {
		types = append(types, string(t))
	}
	const query = `SELECT id, term_id, date, day_type, slot_count, title FROM calendar_days WHERE term_id = $1 AND day_type = ANY($2) ORDER BY date ASC`
	var days []models.CalendarDay
	if err := r.db.SelectContext(ctx, &days, query, termID, pq.Array(types)); err != nil {
		return nil, fmt.Errorf("list instructional calendar days: %w", err)
	}
	return days, nil
}
