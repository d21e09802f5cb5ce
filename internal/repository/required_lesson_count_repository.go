package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RequiredLessonCountRepository reads the legal lesson requirements of a term.
type RequiredLessonCountRepository struct {
	db *sqlx.DB
}

// NewRequiredLessonCountRepository builds repository.
func NewRequiredLessonCountRepository(db *sqlx.DB) *RequiredLessonCountRepository {
	return &RequiredLessonCountRepository{db: db}
}

// ListByTerm returns the requirements of a term with subject names, ordered by subject name.
func (r *RequiredLessonCountRepository) ListByTerm(ctx context.Context, termID string) ([]models.RequiredLessonCount, error) {
	const query = `SELECT rlc.id, rlc.term_id, rlc.subject_id, s.name AS subject_name, rlc.required_count
FROM required_lesson_counts rlc
JOIN subjects s ON s.id = rlc.subject_id
WHERE rlc.term_id = $1
ORDER BY s.name ASC, rlc.subject_id ASC`
	var list []models.RequiredLessonCount
	if err := r.db.SelectContext(ctx, &list, query, termID); err != nil {
		return nil, fmt.Errorf("list required lesson counts: %w", err)
	}
	return list, nil
}
