package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/captainspark/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slideRowColumns = []string{"id", "lesson_id", "kind", "order", "data"}

func TestSlideRepository_GetByLessonID(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		validate      func(t *testing.T, slides []models.Slide)
	}{
		{
			name: "decodes both variants in order",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(slideRowColumns).
					AddRow("s1", "l1", "video", 1, []byte(`{"videoPath":"intro.mp4"}`)).
					AddRow("s2", "l1", "quiz", 2, []byte(`{"question":"Which coin?","answers":[{"text":"A","isCorrect":false},{"text":"B","isCorrect":true}]}`))
				mock.ExpectQuery(`FROM slides WHERE lesson_id = \? ORDER BY .order. ASC`).
					WithArgs("l1").
					WillReturnRows(rows)
			},
			validate: func(t *testing.T, slides []models.Slide) {
				require.Len(t, slides, 2)
				assert.Equal(t, models.SlideKindVideo, slides[0].Kind)
				require.NotNil(t, slides[0].Video)
				assert.Nil(t, slides[0].Quiz)
				assert.Equal(t, "intro.mp4", slides[0].Video.VideoPath)
				require.NotNil(t, slides[1].Quiz)
				assert.Nil(t, slides[1].Video)
				assert.Equal(t, 1, slides[1].Quiz.CorrectCount())
			},
		},
		{
			name: "unknown kind",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(slideRowColumns).
					AddRow("s1", "l1", "game", 1, []byte(`{}`))
				mock.ExpectQuery(`FROM slides WHERE lesson_id = \?`).
					WithArgs("l1").
					WillReturnRows(rows)
			},
			expectedError: true,
		},
		{
			name: "no slides",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM slides WHERE lesson_id = \?`).
					WithArgs("l1").
					WillReturnRows(sqlmock.NewRows(slideRowColumns))
			},
			validate: func(t *testing.T, slides []models.Slide) {
				assert.NotNil(t, slides)
				assert.Empty(t, slides)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()
			repo := NewSlideRepository(db)

			tt.setupMock(mock)

			slides, err := repo.GetByLessonID(context.Background(), "l1")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				tt.validate(t, slides)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSlideRepository_GetByID_NotFound(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewSlideRepository(db)

	mock.ExpectQuery(`FROM slides WHERE id = \?`).
		WithArgs("s1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "s1")

	assert.ErrorIs(t, err, ErrSlideNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlideRepository_Create(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewSlideRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(.order.\), 0\) \+ 1 FROM slides WHERE lesson_id = \?`).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO slides \(id, lesson_id, kind, .order., data\)`).
		WithArgs("s2", "l1", models.SlideKindVideo, 2, `{"videoPath":"main.mp4"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	slide := &models.Slide{ID: "s2", LessonID: "l1", Kind: models.SlideKindVideo, Video: &models.VideoSlide{VideoPath: "main.mp4"}}
	err := repo.Create(context.Background(), slide)

	assert.NoError(t, err)
	assert.Equal(t, 2, slide.Order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlideRepository_Update(t *testing.T) {
	t.Run("unknown kind is rejected before touching the database", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewSlideRepository(db)

		err := repo.Update(context.Background(), &models.Slide{ID: "s1", Kind: "game"})

		assert.ErrorContains(t, err, "unknown slide kind")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewSlideRepository(db)

		mock.ExpectExec(`UPDATE slides SET kind = \?, data = \? WHERE id = \?`).
			WithArgs(models.SlideKindVideo, `{"videoPath":"a.mp4"}`, "s1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &models.Slide{ID: "s1", Kind: models.SlideKindVideo, Video: &models.VideoSlide{VideoPath: "a.mp4"}})

		assert.ErrorIs(t, err, ErrSlideNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
