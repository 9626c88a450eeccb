package service

import (
	"errors"
	"fmt"

	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
)

// Domain errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrOwnershipMismatch = errors.New("attempt does not belong to caller")
	ErrValidation        = errors.New("validation failed")
	ErrExamInactive      = errors.New("exam is not active")
	ErrNoQuestions       = errors.New("exam has no questions")
)

// AlreadyCompletedError is returned once a (user, exam) pair has a completed
// attempt. It is a business outcome, not a failure: Attempt is the winner.
type AlreadyCompletedError struct {
	Attempt *model.ExamAttempt
}

func (e *AlreadyCompletedError) Error() string {
	return fmt.Sprintf("exam already completed by attempt %s", e.Attempt.ID)
}

// Result returns the prior terminal result.
func (e *AlreadyCompletedError) Result() model.AttemptResult {
	return e.Attempt.Result()
}

// AsAlreadyCompleted unwraps an AlreadyCompletedError from err.
func AsAlreadyCompleted(err error) (*AlreadyCompletedError, bool) {
	var ac *AlreadyCompletedError
	if errors.As(err, &ac) {
		return ac, true
	}
	return nil, false
}

// notFound rewrites repository.ErrNotFound into the domain ErrNotFound with a subject.
func notFound(err error, subject string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", subject, ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", subject, err)
}
