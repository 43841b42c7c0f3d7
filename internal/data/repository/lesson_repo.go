package repository

import (
	"context"
	"fmt"
	"time"

	"lesson-enrollment/internal/data/entity"
	"lesson-enrollment/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type LessonRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Lesson, error)
	// FindByIDForUpdate locks the lesson row for the remainder of the
	// current transaction, serializing admission on one lesson.
	FindByIDForUpdate(ctx context.Context, id int64) (*entity.Lesson, error)
	List(ctx context.Context, monthStart, monthEnd *time.Time, limit, offset int) ([]*entity.Lesson, error)
	Count(ctx context.Context, monthStart, monthEnd *time.Time) (int64, error)
}

type lessonRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewLessonRepository(db database.Querier, log *zap.Logger) LessonRepository {
	return &lessonRepository{
		db:  db,
		log: log.With(zap.String("repository", "lesson")),
	}
}

const lessonColumns = `id, title, start_date, end_date, capacity, price, status, instructor, time_slot, created_at, updated_at`

func scanLesson(row pgx.Row) (*entity.Lesson, error) {
	var l entity.Lesson
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.StartDate,
		&l.EndDate,
		&l.Capacity,
		&l.Price,
		&l.Status,
		&l.Instructor,
		&l.TimeSlot,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lessonRepository) FindByID(ctx context.Context, id int64) (*entity.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find lesson by ID",
			zap.Error(err),
			zap.Int64("lesson_id", id),
		)
		return nil, fmt.Errorf("find lesson by ID %d: %w", id, err)
	}

	return lesson, nil
}

func (r *lessonRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1 FOR UPDATE`

	lesson, err := scanLesson(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock lesson %d: %w", id, err)
	}

	return lesson, nil
}

func (r *lessonRepository) List(ctx context.Context, monthStart, monthEnd *time.Time, limit, offset int) ([]*entity.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE status = 'OPEN'
		  AND ($1::timestamptz IS NULL OR start_date >= $1)
		  AND ($2::timestamptz IS NULL OR start_date <= $2)
		ORDER BY start_date, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, monthStart, monthEnd, limit, offset)
	if err != nil {
		r.log.Error("Failed to list lessons", zap.Error(err))
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*entity.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}

	return lessons, rows.Err()
}

func (r *lessonRepository) Count(ctx context.Context, monthStart, monthEnd *time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM lessons
		WHERE status = 'OPEN'
		  AND ($1::timestamptz IS NULL OR start_date >= $1)
		  AND ($2::timestamptz IS NULL OR start_date <= $2)
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, monthStart, monthEnd).Scan(&count); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return count, nil
}
