package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/captainspark/backend/internal/models"
)

var slideScope = orderedScope{table: "slides", scopeColumn: "lesson_id", notFound: ErrSlideNotFound}

type slideRepository struct {
	db *sql.DB
}

// NewSlideRepository creates a new slide repository
func NewSlideRepository(db *sql.DB) *slideRepository {
	return &slideRepository{
		db: db,
	}
}

// encodeSlideData serialises the variant matching the slide kind
func encodeSlideData(slide *models.Slide) (string, error) {
	var payload any
	switch slide.Kind {
	case models.SlideKindVideo:
		payload = slide.Video
	case models.SlideKindQuiz:
		payload = slide.Quiz
	default:
		return "", fmt.Errorf("unknown slide kind: %q", slide.Kind)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal slide data: %w", err)
	}
	return string(data), nil
}

// decodeSlideData fills the variant matching the slide kind
func decodeSlideData(slide *models.Slide, data []byte) error {
	switch slide.Kind {
	case models.SlideKindVideo:
		slide.Video = &models.VideoSlide{}
		return json.Unmarshal(data, slide.Video)
	case models.SlideKindQuiz:
		slide.Quiz = &models.QuizSlide{}
		return json.Unmarshal(data, slide.Quiz)
	default:
		return fmt.Errorf("unknown slide kind: %q", slide.Kind)
	}
}

// GetByID retrieves a slide by its ID
func (r *slideRepository) GetByID(ctx context.Context, id string) (*models.Slide, error) {
	query := `
		SELECT id, lesson_id, kind, ` + "`order`" + `, data
		FROM slides
		WHERE id = ?
		LIMIT 1
	`

	var slide models.Slide
	var data []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&slide.ID, &slide.LessonID, &slide.Kind, &slide.Order, &data)
	if err == sql.ErrNoRows {
		return nil, ErrSlideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slide by id: %w", err)
	}

	if err := decodeSlideData(&slide, data); err != nil {
		return nil, fmt.Errorf("failed to decode slide %s: %w", slide.ID, err)
	}
	return &slide, nil
}

// GetByLessonID retrieves all slides of a lesson in ascending order
func (r *slideRepository) GetByLessonID(ctx context.Context, lessonID string) ([]models.Slide, error) {
	query := `
		SELECT id, lesson_id, kind, ` + "`order`" + `, data
		FROM slides
		WHERE lesson_id = ?
		ORDER BY ` + "`order`" + ` ASC
	`

	rows, err := r.db.QueryContext(ctx, query, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slides: %w", err)
	}
	defer rows.Close()

	slides := []models.Slide{}
	for rows.Next() {
		var slide models.Slide
		var data []byte
		if err := rows.Scan(&slide.ID, &slide.LessonID, &slide.Kind, &slide.Order, &data); err != nil {
			return nil, fmt.Errorf("failed to scan slide: %w", err)
		}
		if err := decodeSlideData(&slide, data); err != nil {
			return nil, fmt.Errorf("failed to decode slide %s: %w", slide.ID, err)
		}
		slides = append(slides, slide)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return slides, nil
}

// Create creates a new slide at the end of its lesson
func (r *slideRepository) Create(ctx context.Context, slide *models.Slide) error {
	data, err := encodeSlideData(slide)
	if err != nil {
		return err
	}

	order, err := nextOrder(ctx, r.db, slideScope, slide.LessonID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO slides (id, lesson_id, kind, ` + "`order`" + `, data)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, slide.ID, slide.LessonID, slide.Kind, order, data); err != nil {
		return fmt.Errorf("failed to create slide: %w", err)
	}

	slide.Order = order
	return nil
}

// Update replaces the kind and content of a slide
func (r *slideRepository) Update(ctx context.Context, slide *models.Slide) error {
	data, err := encodeSlideData(slide)
	if err != nil {
		return err
	}

	query := `
		UPDATE slides
		SET kind = ?, data = ?
		WHERE id = ?
	`
	return execAffectingOne(ctx, r.db, query, []any{slide.Kind, data, slide.ID}, "failed to update slide", ErrSlideNotFound)
}

// Delete deletes a slide
func (r *slideRepository) Delete(ctx context.Context, id string) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM slides WHERE id = ?`, []any{id}, "failed to delete slide", ErrSlideNotFound)
}

// Move swaps a slide with its neighbour and renumbers the lesson
func (r *slideRepository) Move(ctx context.Context, id string, direction Direction) error {
	return move(ctx, r.db, slideScope, id, direction)
}
