package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// WeekdayRuleRepository reads the weekly slot capacities of a term.
type WeekdayRuleRepository struct {
	db *sqlx.DB
}

// NewWeekdayRuleRepository builds repository.
func NewWeekdayRuleRepository(db *sqlx.DB) *WeekdayRuleRepository {
	return &WeekdayRuleRepository{db: db}
}

// ListByTerm returns the rules of a term ordered by weekday.
func (r *WeekdayRuleRepository) ListByTerm(ctx context.Context, termID string) ([]models.WeekdayRule, error) {
	const query = `SELECT id, term_id, weekday, default_slot_count FROM weekly_day_rules WHERE term_id = $1 ORDER BY weekday ASC`
	var rules []models.WeekdayRule
	if err := r.db.SelectContext(ctx, &rules, query, termID); err != nil {
		return nil, fmt.Errorf("list weekly day rules: %w", err)
	}
	return rules, nil
}
