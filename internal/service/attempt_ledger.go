package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
)

// AttemptLedger creates and tracks attempts per (user, exam) pair.
type AttemptLedger struct {
	attempts repository.AttemptStore
}

// NewAttemptLedger creates a new AttemptLedger.
func NewAttemptLedger(attempts repository.AttemptStore) *AttemptLedger {
	return &AttemptLedger{attempts: attempts}
}

// FinalizeInput is the graded outcome written onto an attempt.
type FinalizeInput struct {
	Answers        map[string]string
	Score          float64
	CorrectAnswers int
	TotalQuestions int
	Passed         bool
	CompletedAt    time.Time
	Duration       time.Duration
}

// FindCompletedAttempt returns the completed attempt of a pair, or nil when there is none.
func (l *AttemptLedger) FindCompletedAttempt(ctx context.Context, userID string, examID uuid.UUID) (*model.ExamAttempt, error) {
	a, err := l.attempts.FindCompletedAttempt(ctx, userID, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find completed attempt: %w", err)
	}
	return a, nil
}

// StartAttempt creates a pending attempt. Prior completions are the caller's concern.
func (l *AttemptLedger) StartAttempt(ctx context.Context, userID string, examID, courseID uuid.UUID, totalQuestions int) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{
		UserID:         userID,
		ExamID:         examID,
		CourseID:       courseID,
		Answers:        map[string]string{},
		TotalQuestions: totalQuestions,
	}
	if err := l.attempts.CreateAttempt(ctx, a); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	return a, nil
}

// GetAttempt retrieves an attempt by id.
func (l *AttemptLedger) GetAttempt(ctx context.Context, attemptID uuid.UUID) (*model.ExamAttempt, error) {
	a, err := l.attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, notFound(err, "attempt")
	}
	return a, nil
}

// Finalize moves an attempt to its terminal state exactly once.
//
// Errors: ErrNotFound for unknown attempts, ErrOwnershipMismatch when userID
// is not the owner, *AlreadyCompletedError when this attempt or another
// attempt of the same pair completed first.
func (l *AttemptLedger) Finalize(ctx context.Context, userID string, attemptID uuid.UUID, in FinalizeInput) (*model.ExamAttempt, error) {
	a, err := l.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrOwnershipMismatch
	}
	if a.IsCompleted() {
		return nil, &AlreadyCompletedError{Attempt: a}
	}

	score := in.Score
	completedAt := in.CompletedAt
	a.Answers = in.Answers
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	a.Score = &score
	a.CorrectAnswers = in.CorrectAnswers
	a.TotalQuestions = in.TotalQuestions
	a.Passed = in.Passed
	a.CompletedAt = &completedAt
	a.DurationSeconds = int(in.Duration / time.Second)

	err = l.attempts.CompleteAttempt(ctx, a)
	switch {
	case err == nil:
		return a, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("attempt: %w", ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		return nil, l.lostRace(ctx, a)
	default:
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
}

// ListPassedWithoutCertificate returns passed attempts still missing a certificate.
func (l *AttemptLedger) ListPassedWithoutCertificate(ctx context.Context, limit int) ([]model.ExamAttempt, error) {
	return l.attempts.ListPassedWithoutCertificate(ctx, limit)
}

// lostRace builds the AlreadyCompletedError pointing at the attempt that won.
func (l *AttemptLedger) lostRace(ctx context.Context, a *model.ExamAttempt) error {
	winner, err := l.FindCompletedAttempt(ctx, a.UserID, a.ExamID)
	if err != nil {
		return err
	}
	if winner == nil {
		return fmt.Errorf("attempt %s: completion conflict without a completed attempt", a.ID)
	}
	return &AlreadyCompletedError{Attempt: winner}
}
