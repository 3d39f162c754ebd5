package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/captainspark/backend/internal/models"
)

type feedbackRepository struct {
	db *sql.DB
}

// NewFeedbackRepository creates a new lesson feedback repository
func NewFeedbackRepository(db *sql.DB) *feedbackRepository {
	return &feedbackRepository{
		db: db,
	}
}

// Upsert stores the learner's rating for a lesson, replacing any earlier rating
func (r *feedbackRepository) Upsert(ctx context.Context, learnerID, lessonID string, enjoyment models.Enjoyment) error {
	query := `
		INSERT INTO lesson_feedback (learner_id, lesson_id, enjoyment)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE enjoyment = VALUES(enjoyment)
	`

	if _, err := r.db.ExecContext(ctx, query, learnerID, lessonID, enjoyment); err != nil {
		return fmt.Errorf("failed to upsert lesson feedback: %w", err)
	}

	return nil
}

// GetByLearner returns the learner's ratings keyed by lesson ID
func (r *feedbackRepository) GetByLearner(ctx context.Context, learnerID string) (map[string]models.Enjoyment, error) {
	query := `SELECT lesson_id, enjoyment FROM lesson_feedback WHERE learner_id = ?`

	rows, err := r.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson feedback: %w", err)
	}
	defer rows.Close()

	feedback := make(map[string]models.Enjoyment)
	for rows.Next() {
		var lessonID string
		var enjoyment models.Enjoyment
		if err := rows.Scan(&lessonID, &enjoyment); err != nil {
			return nil, fmt.Errorf("failed to scan lesson feedback: %w", err)
		}
		feedback[lessonID] = enjoyment
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return feedback, nil
}
