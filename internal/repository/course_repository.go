package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/akademi-backend/internal/model"
)

// CourseRepository reads the course catalog table.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetCourse retrieves a course by its UUID.
func (r *CourseRepository) GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title)
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}
