package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetablePlanSlotRepository manages the cells of timetable plans.
type TimetablePlanSlotRepository struct {
	db *sqlx.DB
}

// NewTimetablePlanSlotRepository builds repository.
func NewTimetablePlanSlotRepository(db *sqlx.DB) *TimetablePlanSlotRepository {
	return &TimetablePlanSlotRepository{db: db}
}

func (r *TimetablePlanSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByPlan returns the slots of a plan ordered by weekday and slot index.
func (r *TimetablePlanSlotRepository) ListByPlan(ctx context.Context, planID string) ([]models.TimetablePlanSlot, error) {
	const query = `SELECT id, timetable_plan_id, weekday, day_slot_index, subject_id, created_at
FROM timetable_plan_slots WHERE timetable_plan_id = $1 ORDER BY weekday ASC, day_slot_index ASC`
	var slots []models.TimetablePlanSlot
	if err := r.db.SelectContext(ctx, &slots, query, planID); err != nil {
		return nil, fmt.Errorf("list timetable plan slots: %w", err)
	}
	return slots, nil
}

// ReplaceForPlan deletes every slot of the plan and inserts slots in their place.
func (r *TimetablePlanSlotRepository) ReplaceForPlan(ctx context.Context, exec sqlx.ExtContext, planID string, slots []models.TimetablePlanSlot) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM timetable_plan_slots WHERE timetable_plan_id = $1`, planID); err != nil {
		return fmt.Errorf("delete timetable plan slots: %w", err)
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
		slot.TimetablePlanID = planID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
	}

	const query = `INSERT INTO timetable_plan_slots (id, timetable_plan_id, weekday, day_slot_index, subject_id, created_at)
VALUES (:id, :timetable_plan_id, :weekday, :day_slot_index, :subject_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, slots); err != nil {
		return fmt.Errorf("insert timetable plan slots: %w", err)
	}
	return nil
}
