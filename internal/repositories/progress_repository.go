package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/captainspark/backend/internal/models"
)

type progressRepository struct {
	db *sql.DB
}

// NewProgressRepository creates a new lesson progress repository
func NewProgressRepository(db *sql.DB) *progressRepository {
	return &progressRepository{
		db: db,
	}
}

// Upsert replaces the learner's entry for a lesson. The entry is kept when
// the stored write_seq is newer than progress.Seq, so a retried or delayed
// write cannot roll back a later one.
func (r *progressRepository) Upsert(ctx context.Context, progress *models.LessonProgress) error {
	// write_seq is assigned last so both IFs compare against the stored value
	query := `
		INSERT INTO lesson_progress (learner_id, lesson_id, last_slide_index, completed, write_seq)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			last_slide_index = IF(VALUES(write_seq) >= write_seq, VALUES(last_slide_index), last_slide_index),
			completed = IF(VALUES(write_seq) >= write_seq, VALUES(completed), completed),
			write_seq = GREATEST(write_seq, VALUES(write_seq))
	`

	_, err := r.db.ExecContext(ctx, query,
		progress.LearnerID,
		progress.LessonID,
		progress.LastSlideIndex,
		progress.Completed,
		progress.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert lesson progress: %w", err)
	}

	return nil
}

// MarkCompleted flags a lesson completed, keeping the stored slide index.
// It counts as a write at seq, so older queued positions do not clear the flag.
func (r *progressRepository) MarkCompleted(ctx context.Context, learnerID, lessonID string, seq int64) error {
	query := `
		INSERT INTO lesson_progress (learner_id, lesson_id, last_slide_index, completed, write_seq)
		VALUES (?, ?, 0, TRUE, ?)
		ON DUPLICATE KEY UPDATE completed = TRUE, write_seq = GREATEST(write_seq, VALUES(write_seq))
	`

	if _, err := r.db.ExecContext(ctx, query, learnerID, lessonID, seq); err != nil {
		return fmt.Errorf("failed to mark lesson completed: %w", err)
	}

	return nil
}

// Get retrieves the learner's entry for a lesson
func (r *progressRepository) Get(ctx context.Context, learnerID, lessonID string) (*models.LessonProgress, error) {
	query := `
		SELECT learner_id, lesson_id, last_slide_index, completed, updated_at
		FROM lesson_progress
		WHERE learner_id = ? AND lesson_id = ?
		LIMIT 1
	`

	var progress models.LessonProgress
	err := r.db.QueryRowContext(ctx, query, learnerID, lessonID).Scan(
		&progress.LearnerID,
		&progress.LessonID,
		&progress.LastSlideIndex,
		&progress.Completed,
		&progress.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson progress: %w", err)
	}

	return &progress, nil
}

// GetByLearner returns the learner's progress map keyed by lesson ID
func (r *progressRepository) GetByLearner(ctx context.Context, learnerID string) (map[string]models.ProgressEntry, error) {
	query := `
		SELECT lesson_id, last_slide_index, completed
		FROM lesson_progress
		WHERE learner_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	progress := make(map[string]models.ProgressEntry)
	for rows.Next() {
		var lessonID string
		var entry models.ProgressEntry
		if err := rows.Scan(&lessonID, &entry.LastSlideIndex, &entry.Completed); err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		progress[lessonID] = entry
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return progress, nil
}

// LatestCompletedLessonID returns the most recently completed lesson of the learner
func (r *progressRepository) LatestCompletedLessonID(ctx context.Context, learnerID string) (string, error) {
	query := `
		SELECT lesson_id
		FROM lesson_progress
		WHERE learner_id = ? AND completed = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var lessonID string
	err := r.db.QueryRowContext(ctx, query, learnerID).Scan(&lessonID)
	if err == sql.ErrNoRows {
		return "", ErrProgressNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest completed lesson: %w", err)
	}

	return lessonID, nil
}
