package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// FixedTimetableSlotRepository manages the weekly template slots of a term.
type FixedTimetableSlotRepository struct {
	db *sqlx.DB
}

// NewFixedTimetableSlotRepository builds repository.
func NewFixedTimetableSlotRepository(db *sqlx.DB) *FixedTimetableSlotRepository {
	return &FixedTimetableSlotRepository{db: db}
}

func (r *FixedTimetableSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByTerm returns the slots of a term ordered by weekday and slot index.
func (r *FixedTimetableSlotRepository) ListByTerm(ctx context.Context, termID string) ([]models.FixedTimetableSlot, error) {
	const query = `SELECT id, term_id, weekday, day_slot_index, subject_id, name, note, created_at
FROM fixed_timetable_slots WHERE term_id = $1 ORDER BY weekday ASC, day_slot_index ASC`
	var slots []models.FixedTimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, termID); err != nil {
		return nil, fmt.Errorf("list fixed timetable slots: %w", err)
	}
	return slots, nil
}

// ReplaceForTerm deletes every slot of the term and inserts slots in their place. Run it
// inside a transaction to make the swap atomic.
func (r *FixedTimetableSlotRepository) ReplaceForTerm(ctx context.Context, exec sqlx.ExtContext, termID string, slots []models.FixedTimetableSlot) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM fixed_timetable_slots WHERE term_id = $1`, termID); err != nil {
		return fmt.Errorf("delete fixed timetable slots: %w", err)
	}
	if len(slots) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.TermID = termID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
	}

	const query = `INSERT INTO fixed_timetable_slots (id, term_id, weekday, day_slot_index, subject_id, name, note, created_at)
VALUES (:id, :term_id, :weekday, :day_slot_index, :subject_id, :name, :note, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, slots); err != nil {
		return fmt.Errorf("insert fixed timetable slots: %w", err)
	}
	return nil
}
