package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// TimetablePlanRepository reads timetable plans.
type TimetablePlanRepository struct {
	db *sqlx.DB
}

// NewTimetablePlanRepository builds repository.
func NewTimetablePlanRepository(db *sqlx.DB) *TimetablePlanRepository {
	return &TimetablePlanRepository{db: db}
}

// FindByID loads a plan. Missing plans surface sql.ErrNoRows.
func (r *TimetablePlanRepository) FindByID(ctx context.Context, id string) (*models.TimetablePlan, error) {
	const query = `SELECT id, term_id, name, created_at, updated_at FROM timetable_plans WHERE id = $1`
	var plan models.TimetablePlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		return nil, err
	}
	return &plan, nil
}
