package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
)

// ExamCatalog is the read side of exam definitions.
//
// The participant-facing variant is cached in Redis; the answer key never is.
type ExamCatalog struct {
	exams     repository.ExamStore
	questions repository.QuestionStore
	rdb       *redis.Client
	ttl       time.Duration
	log       zerolog.Logger
}

// NewExamCatalog creates a new ExamCatalog. rdb may be nil to disable caching.
func NewExamCatalog(
	exams repository.ExamStore,
	questions repository.QuestionStore,
	rdb *redis.Client,
	ttl time.Duration,
	log zerolog.Logger,
) *ExamCatalog {
	return &ExamCatalog{
		exams:     exams,
		questions: questions,
		rdb:       rdb,
		ttl:       ttl,
		log:       log.With().Str("component", "exam_catalog").Logger(),
	}
}

// GetExam retrieves an exam by id.
func (c *ExamCatalog) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	e, err := c.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, notFound(err, "exam")
	}
	return e, nil
}

// GetExamForCourse retrieves the active exam of a course.
func (c *ExamCatalog) GetExamForCourse(ctx context.Context, courseID uuid.UUID) (*model.Exam, error) {
	e, err := c.exams.GetActiveExamForCourse(ctx, courseID)
	if err != nil {
		return nil, notFound(err, "exam for course")
	}
	return e, nil
}

// ResolveExam accepts either an exam id or a course id.
func (c *ExamCatalog) ResolveExam(ctx context.Context, courseOrExamID uuid.UUID) (*model.Exam, error) {
	e, err := c.GetExam(ctx, courseOrExamID)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return c.GetExamForCourse(ctx, courseOrExamID)
}

// GetQuestions returns the full question set, answers included, ordered by order_num.
// Only grading and post-submission review may use it.
func (c *ExamCatalog) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestion, error) {
	qs, err := c.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return qs, nil
}

// GetQuestionsWithoutAnswers returns the question set with correct answers stripped.
func (c *ExamCatalog) GetQuestionsWithoutAnswers(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error) {
	if cached, ok := c.cachedPayload(ctx, examID); ok {
		return cached, nil
	}

	qs, err := c.GetQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	redacted := make([]model.QuestionForStudent, len(qs))
	for i, q := range qs {
		redacted[i] = q.Redact()
	}

	c.storePayload(ctx, examID, redacted)
	return redacted, nil
}

// AddQuestion validates and stores a question, then drops the cached payload.
func (c *ExamCatalog) AddQuestion(ctx context.Context, q *model.ExamQuestion) error {
	if err := c.questions.AddQuestion(ctx, q); err != nil {
		if errors.Is(err, model.ErrInvalidQuestion) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return fmt.Errorf("add question: %w", err)
	}
	c.InvalidateExam(ctx, q.ExamID)
	return nil
}

// RemoveQuestion deletes a question of examID and drops the cached payload.
func (c *ExamCatalog) RemoveQuestion(ctx context.Context, examID, questionID uuid.UUID) error {
	if err := c.questions.DeleteQuestion(ctx, examID, questionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("question: %w", ErrNotFound)
		}
		return fmt.Errorf("delete question: %w", err)
	}
	c.InvalidateExam(ctx, examID)
	return nil
}

// SetExamActive enables or retires an exam. Retired exams stay referenced by
// their attempts and certificates; nothing is ever hard-deleted.
func (c *ExamCatalog) SetExamActive(ctx context.Context, examID uuid.UUID, active bool) error {
	if err := c.exams.SetExamActive(ctx, examID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("exam: %w", ErrNotFound)
		}
		return fmt.Errorf("set exam active: %w", err)
	}
	c.InvalidateExam(ctx, examID)
	c.log.Info().Str("exam_id", examID.String()).Bool("active", active).Msg("Exam activation changed")
	return nil
}

// InvalidateExam removes the cached participant payload of an exam.
func (c *ExamCatalog) InvalidateExam(ctx context.Context, examID uuid.UUID) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Err(); err != nil {
		c.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to invalidate payload cache")
	}
}

func (c *ExamCatalog) cachedPayload(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, bool) {
	if c.rdb == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Payload cache read failed")
		}
		return nil, false
	}
	var qs []model.QuestionForStudent
	if err := json.Unmarshal(data, &qs); err != nil {
		c.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Corrupt payload cache entry")
		return nil, false
	}
	return qs, true
}

func (c *ExamCatalog) storePayload(ctx context.Context, examID uuid.UUID, qs []model.QuestionForStudent) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(qs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, config.CacheKey.ExamPayloadKey(examID.String()), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Payload cache write failed")
		return
	}
	c.log.Debug().Str("exam_id", examID.String()).Int("questions", len(qs)).Msg("Payload cached")
}
