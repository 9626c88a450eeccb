package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/akademi-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for a given exam, ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, options, correct_answer, order_num, points
		 FROM exam_questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.ExamQuestion
	for rows.Next() {
		var q model.ExamQuestion
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.Options, &q.CorrectAnswer, &q.OrderNum, &q.Points); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// AddQuestion validates and inserts a question, then resyncs the exam's question count.
func (r *QuestionRepository) AddQuestion(ctx context.Context, q *model.ExamQuestion) error {
	if q.Points == 0 {
		q.Points = model.DefaultQuestionPoints
	}
	if err := q.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO exam_questions (exam_id, question_text, options, correct_answer, order_num, points)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			q.ExamID, q.QuestionText, q.Options, q.CorrectAnswer, q.OrderNum, q.Points,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question: %w", translate(err))
		}
		return syncQuestionCount(ctx, tx, q.ExamID)
	})
}

// DeleteQuestion removes a question of examID and resyncs the exam's question count.
func (r *QuestionRepository) DeleteQuestion(ctx context.Context, examID, id uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM exam_questions WHERE id = $1 AND exam_id = $2`, id, examID)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return syncQuestionCount(ctx, tx, examID)
	})
}

func syncQuestionCount(ctx context.Context, tx pgx.Tx, examID uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`UPDATE exams
		 SET total_questions = (SELECT COUNT(*) FROM exam_questions WHERE exam_id = $1),
		     updated_at = NOW()
		 WHERE id = $1`, examID)
	if err != nil {
		return fmt.Errorf("sync question count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
