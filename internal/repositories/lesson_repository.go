package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/captainspark/backend/internal/models"
)

var lessonScope = orderedScope{table: "lessons", scopeColumn: "course_id", notFound: ErrLessonNotFound}

const lessonColumns = `id, course_id, title, COALESCE(description, ''), COALESCE(tag, ''), ` + "`order`" + `, created_at`

type lessonRepository struct {
	db *sql.DB
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *sql.DB) *lessonRepository {
	return &lessonRepository{
		db: db,
	}
}

func scanLesson(scanner interface{ Scan(...any) error }, lesson *models.Lesson) error {
	return scanner.Scan(
		&lesson.ID,
		&lesson.CourseID,
		&lesson.Title,
		&lesson.Description,
		&lesson.Tag,
		&lesson.Order,
		&lesson.CreatedAt,
	)
}

// GetByID retrieves a lesson by its ID.
// Every matching row is read so a duplicated identifier is reported instead of silently picking one.
func (r *lessonRepository) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = ? LIMIT 2`

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson by id: %w", err)
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		var lesson models.Lesson
		if err := scanLesson(rows, &lesson); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	switch len(lessons) {
	case 0:
		return nil, ErrLessonNotFound
	case 1:
		return &lessons[0], nil
	default:
		return nil, ErrLessonDuplicated
	}
}

// GetByCourseID retrieves all lessons for a course, sorted by order
func (r *lessonRepository) GetByCourseID(ctx context.Context, courseID string) ([]models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE course_id = ? ORDER BY ` + "`order`"

	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var lesson models.Lesson
		if err := scanLesson(rows, &lesson); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return lessons, nil
}

// GetFirst retrieves the first lesson of the first course
func (r *lessonRepository) GetFirst(ctx context.Context) (*models.Lesson, error) {
	query := `
		SELECT l.id, l.course_id, l.title, COALESCE(l.description, ''), COALESCE(l.tag, ''), l.` + "`order`" + `, l.created_at
		FROM lessons l
		INNER JOIN courses c ON c.id = l.course_id
		ORDER BY c.` + "`order`" + `, l.` + "`order`" + `
		LIMIT 1
	`

	var lesson models.Lesson
	err := scanLesson(r.db.QueryRowContext(ctx, query), &lesson)
	if err == sql.ErrNoRows {
		return nil, ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first lesson: %w", err)
	}

	return &lesson, nil
}

// Create creates a new lesson at the end of its course
func (r *lessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	order, err := nextOrder(ctx, r.db, lessonScope, lesson.CourseID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lessons (id, course_id, title, description, tag, ` + "`order`" + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		lesson.ID,
		lesson.CourseID,
		lesson.Title,
		nullString(lesson.Description),
		nullString(lesson.Tag),
		order,
	)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	lesson.Order = order
	return nil
}

// Update updates a lesson (partial update)
func (r *lessonRepository) Update(ctx context.Context, id string, req *models.UpdateLessonRequest) error {
	var setParts []string
	var args []any

	if req.CourseID != nil {
		setParts = append(setParts, "course_id = ?")
		args = append(args, *req.CourseID)
	}
	if req.Title != nil {
		setParts = append(setParts, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Description != nil {
		setParts = append(setParts, "description = ?")
		args = append(args, nullString(*req.Description))
	}
	if req.Tag != nil {
		setParts = append(setParts, "tag = ?")
		args = append(args, nullString(*req.Tag))
	}

	if len(setParts) == 0 {
		return fmt.Errorf("no fields to update")
	}

	query := fmt.Sprintf(`
		UPDATE lessons
		SET %s
		WHERE id = ?
	`, strings.Join(setParts, ", "))
	args = append(args, id)

	return execAffectingOne(ctx, r.db, query, args, "failed to update lesson", ErrLessonNotFound)
}

// Delete deletes a lesson and its slides
func (r *lessonRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM lessons WHERE id = ?`, []any{id}, "failed to delete lesson", ErrLessonNotFound)
}

// Move swaps a lesson with its neighbour in the course and renumbers the course
func (r *lessonRepository) Move(ctx context.Context, id string, direction Direction) error {
	return move(ctx, r.db, lessonScope, id, direction)
}
