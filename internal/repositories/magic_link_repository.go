package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/captainspark/backend/internal/models"
)

type magicLinkRepository struct {
	db *sql.DB
}

// NewMagicLinkRepository creates a new magic link repository
func NewMagicLinkRepository(db *sql.DB) *magicLinkRepository {
	return &magicLinkRepository{
		db: db,
	}
}

// Create stores a new magic link
func (r *magicLinkRepository) Create(ctx context.Context, link *models.MagicLink) error {
	query := `
		INSERT INTO magic_links (id, learner_id, token_hash, redirect_path, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, link.ID, link.LearnerID, link.TokenHash, link.RedirectPath, link.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create magic link: %w", err)
	}

	return nil
}

// GetByTokenHash retrieves a magic link by the hash of its token
func (r *magicLinkRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.MagicLink, error) {
	query := `
		SELECT id, learner_id, token_hash, redirect_path, expires_at, used_at
		FROM magic_links
		WHERE token_hash = ?
		LIMIT 1
	`

	var link models.MagicLink
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&link.ID,
		&link.LearnerID,
		&link.TokenHash,
		&link.RedirectPath,
		&link.ExpiresAt,
		&usedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMagicLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get magic link: %w", err)
	}

	if usedAt.Valid {
		link.UsedAt = &usedAt.Time
	}
	return &link, nil
}

// MarkUsed consumes a magic link. A link can only be consumed once.
func (r *magicLinkRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) error {
	query := `
		UPDATE magic_links
		SET used_at = ?
		WHERE id = ? AND used_at IS NULL
	`
	return execAffectingOne(ctx, r.db, query, []any{usedAt, id}, "failed to mark magic link used", ErrMagicLinkUsed)
}

// DeleteExpired removes links that expired or were used before the given time
func (r *magicLinkRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM magic_links
		WHERE expires_at < ? OR (used_at IS NOT NULL AND used_at < ?)
	`

	result, err := r.db.ExecContext(ctx, query, before, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired magic links: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
