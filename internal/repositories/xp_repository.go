package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

type xpRepository struct {
	db *sql.DB
}

// NewXPRepository creates a new XP award repository
func NewXPRepository(db *sql.DB) *xpRepository {
	return &xpRepository{
		db: db,
	}
}

// Award records a completion award for (learner, lesson) and adds points to the
// learner's lifetime total. The ledger's primary key makes a repeated award a no-op,
// in which case awarded is false and both totals equal the current XP.
func (r *xpRepository) Award(ctx context.Context, learnerID, lessonID string, points int) (previous, current int, awarded bool, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `SELECT xp FROM learners WHERE id = ? FOR UPDATE`, learnerID).Scan(&previous)
	if err == sql.ErrNoRows {
		return 0, 0, false, ErrLearnerNotFound
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to read learner xp: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO xp_awards (learner_id, lesson_id, points) VALUES (?, ?, ?)`,
		learnerID, lessonID, points,
	)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to record xp award: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 0 {
		return previous, previous, false, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE learners SET xp = xp + ? WHERE id = ?`, points, learnerID); err != nil {
		return 0, 0, false, fmt.Errorf("failed to add xp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, false, fmt.Errorf("failed to commit xp award: %w", err)
	}

	return previous, previous + points, true, nil
}
