package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/akademi-backend/internal/model"
)

const attemptColumns = `id, user_id, exam_id, course_id, answers, started_at, completed_at,
	score, correct_answers, total_questions, passed, duration_seconds`

// AttemptRepository handles exam attempt data access.
//
// The table carries a partial unique index on (user_id, exam_id) WHERE
// completed_at IS NOT NULL, so at most one attempt per pair can complete.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := row.Scan(&a.ID, &a.UserID, &a.ExamID, &a.CourseID, &a.Answers, &a.StartedAt, &a.CompletedAt,
		&a.Score, &a.CorrectAnswers, &a.TotalQuestions, &a.Passed, &a.DurationSeconds)
	if err != nil {
		return nil, err
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	return a, nil
}

// CreateAttempt inserts a new in-progress attempt.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, a *model.ExamAttempt) error {
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	return translate(r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (user_id, exam_id, course_id, answers, total_questions)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, started_at`,
		a.UserID, a.ExamID, a.CourseID, a.Answers, a.TotalQuestions,
	).Scan(&a.ID, &a.StartedAt))
}

// GetAttempt retrieves an attempt by its UUID.
func (r *AttemptRepository) GetAttempt(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM exam_attempts WHERE id = $1`, id))
	return a, translate(err)
}

// FindCompletedAttempt returns the single completed attempt of a pair, or ErrNotFound.
func (r *AttemptRepository) FindCompletedAttempt(ctx context.Context, userID string, examID uuid.UUID) (*model.ExamAttempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM exam_attempts
		 WHERE user_id = $1 AND exam_id = $2 AND completed_at IS NOT NULL`, userID, examID))
	return a, translate(err)
}

// CompleteAttempt moves an in-progress attempt to its terminal state.
func (r *AttemptRepository) CompleteAttempt(ctx context.Context, a *model.ExamAttempt) error {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`UPDATE exam_attempts
		 SET answers = $2, score = $3, correct_answers = $4, total_questions = $5,
		     passed = $6, completed_at = $7, duration_seconds = $8
		 WHERE id = $1 AND completed_at IS NULL
		 RETURNING id`,
		a.ID, a.Answers, a.Score, a.CorrectAnswers, a.TotalQuestions,
		a.Passed, a.CompletedAt, a.DurationSeconds,
	).Scan(&id)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrConflict
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("complete attempt: %w", err)
	}

	// No row updated: either the attempt is unknown or it already completed.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM exam_attempts WHERE id = $1)`, a.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check attempt: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// ListPassedWithoutCertificate returns passed attempts that still lack a certificate,
// oldest completion first.
func (r *AttemptRepository) ListPassedWithoutCertificate(ctx context.Context, limit int) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.user_id, a.exam_id, a.course_id, a.answers, a.started_at, a.completed_at,
		        a.score, a.correct_answers, a.total_questions, a.passed, a.duration_seconds
		 FROM exam_attempts a
		 LEFT JOIN certificates c ON c.exam_attempt_id = a.id
		 WHERE a.completed_at IS NOT NULL AND a.passed AND c.id IS NULL
		 ORDER BY a.completed_at
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}
