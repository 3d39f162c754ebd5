package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/captainspark/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicLinkRepository_Create(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewMagicLinkRepository(db)

	expires := time.Now().Add(15 * time.Minute)
	mock.ExpectExec(`INSERT INTO magic_links \(id, learner_id, token_hash, redirect_path, expires_at\)`).
		WithArgs("m1", "u1", "hash", "/lesson/intro", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.MagicLink{
		ID: "m1", LearnerID: "u1", TokenHash: "hash", RedirectPath: "/lesson/intro", ExpiresAt: expires,
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMagicLinkRepository_GetByTokenHash(t *testing.T) {
	columns := []string{"id", "learner_id", "token_hash", "redirect_path", "expires_at", "used_at"}

	t.Run("unused link", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewMagicLinkRepository(db)

		mock.ExpectQuery(`FROM magic_links WHERE token_hash = \?`).
			WithArgs("hash").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("m1", "u1", "hash", "/lesson/intro", time.Now(), nil))

		link, err := repo.GetByTokenHash(context.Background(), "hash")

		require.NoError(t, err)
		assert.Nil(t, link.UsedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewMagicLinkRepository(db)

		mock.ExpectQuery(`FROM magic_links WHERE token_hash = \?`).
			WithArgs("hash").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByTokenHash(context.Background(), "hash")

		assert.ErrorIs(t, err, ErrMagicLinkNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMagicLinkRepository_MarkUsed(t *testing.T) {
	tests := []struct {
		name          string
		rowsAffected  int64
		expectedError error
	}{
		{name: "first use", rowsAffected: 1},
		{name: "second use", rowsAffected: 0, expectedError: ErrMagicLinkUsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()
			repo := NewMagicLinkRepository(db)

			now := time.Now()
			mock.ExpectExec(`UPDATE magic_links SET used_at = \? WHERE id = \? AND used_at IS NULL`).
				WithArgs(now, "m1").
				WillReturnResult(sqlmock.NewResult(0, tt.rowsAffected))

			err := repo.MarkUsed(context.Background(), "m1", now)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMagicLinkRepository_DeleteExpired(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewMagicLinkRepository(db)

	now := time.Now()
	mock.ExpectExec(`DELETE FROM magic_links WHERE expires_at < \? OR \(used_at IS NOT NULL AND used_at < \?\)`).
		WithArgs(now, now).
		WillReturnResult(sqlmock.NewResult(0, 5))

	deleted, err := repo.DeleteExpired(context.Background(), now)

	assert.NoError(t, err)
	assert.Equal(t, int64(5), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
