package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/akademi-backend/internal/model"
)

const examColumns = `id, course_id, title, duration_minutes, passing_grade, total_questions, is_active`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.CourseID, &e.Title, &e.DurationMinutes, &e.PassingGrade, &e.TotalQuestions, &e.IsActive)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// GetExam retrieves an exam by its UUID, active or not.
func (r *ExamRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// GetActiveExamForCourse retrieves the active exam of a course.
func (r *ExamRepository) GetActiveExamForCourse(ctx context.Context, courseID uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+`
		 FROM exams
		 WHERE course_id = $1 AND is_active
		 ORDER BY created_at DESC
		 LIMIT 1`, courseID))
}

// CreateExam inserts a new exam as given; a passing grade of 0 is stored as 0.
// total_questions starts at zero.
func (r *ExamRepository) CreateExam(ctx context.Context, e *model.Exam) error {
	e.TotalQuestions = 0
	return translate(r.pool.QueryRow(ctx,
		`INSERT INTO exams (course_id, title, duration_minutes, passing_grade, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.CourseID, e.Title, e.DurationMinutes, e.PassingGrade, e.IsActive,
	).Scan(&e.ID))
}

// SetExamActive soft-enables or soft-disables an exam. Exams are never hard-deleted.
func (r *ExamRepository) SetExamActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
