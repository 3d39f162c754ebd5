package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/captainspark/backend/internal/models"
	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the server error number for a UNIQUE violation
const mysqlDuplicateEntry = 1062

const learnerColumns = `id, email, parent_name, kid_name, kid_age,
	COALESCE(parent_audio_path, ''), COALESCE(kid_audio_path, ''),
	xp, streak_count, last_streak_date, created_at`

type learnerRepository struct {
	db *sql.DB
}

// NewLearnerRepository creates a new learner repository
func NewLearnerRepository(db *sql.DB) *learnerRepository {
	return &learnerRepository{
		db: db,
	}
}

func scanLearner(scanner interface{ Scan(...any) error }) (*models.Learner, error) {
	var learner models.Learner
	var lastStreak sql.NullTime
	err := scanner.Scan(
		&learner.ID,
		&learner.Email,
		&learner.ParentName,
		&learner.KidName,
		&learner.KidAge,
		&learner.ParentAudio,
		&learner.KidAudio,
		&learner.XP,
		&learner.StreakCount,
		&lastStreak,
		&learner.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastStreak.Valid {
		t := lastStreak.Time
		learner.LastStreakDate = &t
	}
	return &learner, nil
}

// Create inserts a new learner
func (r *learnerRepository) Create(ctx context.Context, learner *models.Learner) error {
	query := `
		INSERT INTO learners (id, email, parent_name, kid_name, kid_age)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, learner.ID, learner.Email, learner.ParentName, learner.KidName, learner.KidAge)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create learner: %w", err)
	}

	return nil
}

// GetByID retrieves a learner by ID
func (r *learnerRepository) GetByID(ctx context.Context, id string) (*models.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = ? LIMIT 1`

	learner, err := scanLearner(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner by id: %w", err)
	}

	return learner, nil
}

// GetByEmail retrieves a learner by email
func (r *learnerRepository) GetByEmail(ctx context.Context, email string) (*models.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE email = ? LIMIT 1`

	learner, err := scanLearner(r.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, ErrLearnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner by email: %w", err)
	}

	return learner, nil
}

// ExistsByEmail checks if a learner with the given email exists
func (r *learnerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM learners WHERE email = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// UpdateAudio stores the welcome narration object paths. Empty paths leave the column unchanged.
func (r *learnerRepository) UpdateAudio(ctx context.Context, id, parentAudio, kidAudio string) error {
	query := `
		UPDATE learners
		SET parent_audio_path = COALESCE(?, parent_audio_path),
			kid_audio_path = COALESCE(?, kid_audio_path)
		WHERE id = ?
	`
	return execAffectingOne(ctx, r.db, query, []any{nullString(parentAudio), nullString(kidAudio), id}, "failed to update learner audio", ErrLearnerNotFound)
}

// UpdateStreak writes the streak counter and its date
func (r *learnerRepository) UpdateStreak(ctx context.Context, id string, count int, date time.Time) error {
	query := `
		UPDATE learners
		SET streak_count = ?, last_streak_date = ?
		WHERE id = ?
	`
	return execAffectingOne(ctx, r.db, query, []any{count, date.Format(time.DateOnly), id}, "failed to update streak", ErrLearnerNotFound)
}
