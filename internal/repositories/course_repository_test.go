package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/captainspark/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMockDB creates a sqlmock database shared by the repository tests
func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}

	return db, mock, cleanup
}

func strPtr(s string) *string { return &s }

func TestNewCourseRepository(t *testing.T) {
	db := &sql.DB{}

	repo := NewCourseRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestCourseRepository_GetAll(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedCount int
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "title", "description", "order", "created_at"}).
					AddRow("c1", "Treasure Tracker", "", 1, time.Now()).
					AddRow("c2", "Space Savers", "stars", 2, time.Now())
				mock.ExpectQuery(`SELECT id, title, COALESCE\(description, ''\), .order., created_at FROM courses ORDER BY .order.`).
					WillReturnRows(rows)
			},
			expectedCount: 2,
		},
		{
			name: "empty",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM courses ORDER BY`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "order", "created_at"}))
			},
			expectedCount: 0,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM courses ORDER BY`).WillReturnError(errors.New("database error"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()
			repo := NewCourseRepository(db)

			tt.setupMock(mock)

			result, err := repo.GetAll(context.Background())

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, result)
			} else {
				assert.NoError(t, err)
				assert.Len(t, result, tt.expectedCount)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_GetByID(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(`FROM courses WHERE id = \?`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	result, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_Create(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedOrder int
	}{
		{
			name: "appends after last course",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT COALESCE\(MAX\(.order.\), 0\) \+ 1 FROM courses`).
					WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))
				mock.ExpectExec(`INSERT INTO courses \(id, title, description, .order.\)`).
					WithArgs("c3", "Rocket Budget", sql.NullString{}, 3).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expectedOrder: 3,
		},
		{
			name: "insert error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM courses`).
					WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))
				mock.ExpectExec(`INSERT INTO courses`).WillReturnError(errors.New("insert failed"))
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()
			repo := NewCourseRepository(db)

			tt.setupMock(mock)

			course := &models.Course{ID: "c3", Title: "Rocket Budget"}
			err := repo.Create(context.Background(), course)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "failed to create course")
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedOrder, course.Order)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_Update(t *testing.T) {
	tests := []struct {
		name          string
		req           *models.UpdateCourseRequest
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
		errorContains string
	}{
		{
			name: "title only",
			req:  &models.UpdateCourseRequest{Title: strPtr("New")},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE courses SET title = \? WHERE id = \?`).
					WithArgs("New", "c1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:          "no fields",
			req:           &models.UpdateCourseRequest{},
			setupMock:     func(mock sqlmock.Sqlmock) {},
			errorContains: "no fields to update",
		},
		{
			name: "not found",
			req:  &models.UpdateCourseRequest{Title: strPtr("New"), Description: strPtr("")},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE courses SET title = \?, description = \? WHERE id = \?`).
					WithArgs("New", sql.NullString{}, "c1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: ErrCourseNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()
			repo := NewCourseRepository(db)

			tt.setupMock(mock)

			err := repo.Update(context.Background(), "c1", tt.req)

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
			case tt.errorContains != "":
				assert.ErrorContains(t, err, tt.errorContains)
			default:
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_Delete(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec(`DELETE FROM courses WHERE id = \?`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepository_Move(t *testing.T) {
	tests := []struct {
		name          string
		id            string
		direction     Direction
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name:      "move second course up",
			id:        "c2",
			direction: DirectionUp,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM courses ORDER BY .order. FOR UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1").AddRow("c2").AddRow("c3"))
				mock.ExpectExec(`UPDATE courses SET .order. = .order. \+ 1000000`).
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectExec(`UPDATE courses SET .order. = \? WHERE id = \?`).
					WithArgs(1, "c2").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE courses SET .order. = \? WHERE id = \?`).
					WithArgs(2, "c1").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(`UPDATE courses SET .order. = \? WHERE id = \?`).
					WithArgs(3, "c3").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name:      "first course cannot move up",
			id:        "c1",
			direction: DirectionUp,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM courses`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1").AddRow("c2"))
				mock.ExpectRollback()
			},
			expectedError: ErrNothingToMove,
		},
		{
			name:      "unknown course",
			id:        "zz",
			direction: DirectionDown,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`SELECT id FROM courses`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
				mock.ExpectRollback()
			},
			expectedError: ErrCourseNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, cleanup := setupMockDB(t)
			defer cleanup()
			repo := NewCourseRepository(db)

			tt.setupMock(mock)

			err := repo.Move(context.Background(), tt.id, tt.direction)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCourseRepository_Move_InvalidDirection(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	err := repo.Move(context.Background(), "c1", Direction("sideways"))

	assert.ErrorContains(t, err, "invalid direction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
