package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/captainspark/backend/internal/models"
)

var courseScope = orderedScope{table: "courses", notFound: ErrCourseNotFound}

type courseRepository struct {
	db *sql.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{
		db: db,
	}
}

// GetAll retrieves all courses sorted by order
func (r *courseRepository) GetAll(ctx context.Context) ([]models.Course, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), ` + "`order`" + `, created_at
		FROM courses
		ORDER BY ` + "`order`"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(&course.ID, &course.Title, &course.Description, &course.Order, &course.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return courses, nil
}

// GetByID retrieves a course by its ID
func (r *courseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, title, COALESCE(description, ''), ` + "`order`" + `, created_at
		FROM courses
		WHERE id = ?
		LIMIT 1
	`

	var course models.Course
	err := r.db.QueryRowContext(ctx, query, id).Scan(&course.ID, &course.Title, &course.Description, &course.Order, &course.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course by id: %w", err)
	}

	return &course, nil
}

// Create creates a new course at the end of the course list
func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	order, err := nextOrder(ctx, r.db, courseScope, "")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO courses (id, title, description, ` + "`order`" + `)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, course.ID, course.Title, nullString(course.Description), order); err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}

	course.Order = order
	return nil
}

// Update updates a course (partial update)
func (r *courseRepository) Update(ctx context.Context, id string, req *models.UpdateCourseRequest) error {
	var setParts []string
	var args []any

	if req.Title != nil {
		setParts = append(setParts, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Description != nil {
		setParts = append(setParts, "description = ?")
		args = append(args, nullString(*req.Description))
	}

	if len(setParts) == 0 {
		return fmt.Errorf("no fields to update")
	}

	query := fmt.Sprintf(`
		UPDATE courses
		SET %s
		WHERE id = ?
	`, strings.Join(setParts, ", "))
	args = append(args, id)

	return execAffectingOne(ctx, r.db, query, args, "failed to update course", ErrCourseNotFound)
}

// Delete deletes a course and, through the foreign key, its lessons and slides
func (r *courseRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM courses WHERE id = ?`, []any{id}, "failed to delete course", ErrCourseNotFound)
}

// Move swaps a course with its neighbour and renumbers all courses
func (r *courseRepository) Move(ctx context.Context, id string, direction Direction) error {
	return move(ctx, r.db, courseScope, id, direction)
}

// execAffectingOne runs a write and maps zero affected rows to notFound
func execAffectingOne(ctx context.Context, db *sql.DB, query string, args []any, failure string, notFound error) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", failure, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// nullString maps "" to SQL NULL for optional text columns
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
