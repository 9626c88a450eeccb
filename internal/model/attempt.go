package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState is the per (user, exam) state derived from the ledger.
type AttemptState string

const (
	AttemptStateNotStarted AttemptState = "NOT_STARTED"
	AttemptStateInProgress AttemptState = "IN_PROGRESS"
	AttemptStateCompleted  AttemptState = "COMPLETED"
)

// ExamAttempt represents one user's run at an exam.
// CompletedAt == nil means the attempt is still in progress.
type ExamAttempt struct {
	ID              uuid.UUID         `json:"id"`
	UserID          string            `json:"user_id"`
	ExamID          uuid.UUID         `json:"exam_id"`
	CourseID        uuid.UUID         `json:"course_id"`
	Answers         map[string]string `json:"answers"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Score           *float64          `json:"score,omitempty"`
	CorrectAnswers  int               `json:"correct_answers"`
	TotalQuestions  int               `json:"total_questions"`
	Passed          bool              `json:"passed"`
	DurationSeconds int               `json:"duration_seconds"`
}

// IsCompleted reports whether the attempt reached its terminal state.
func (a *ExamAttempt) IsCompleted() bool {
	return a != nil && a.CompletedAt != nil
}

// State returns the lifecycle state of this single attempt.
func (a *ExamAttempt) State() AttemptState {
	switch {
	case a == nil:
		return AttemptStateNotStarted
	case a.CompletedAt != nil:
		return AttemptStateCompleted
	default:
		return AttemptStateInProgress
	}
}

// AttemptResult is the prior terminal result surfaced once an exam is completed.
type AttemptResult struct {
	AttemptID      uuid.UUID `json:"attempt_id"`
	Score          float64   `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	Passed         bool      `json:"passed"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Result projects a completed attempt onto its terminal result.
func (a *ExamAttempt) Result() AttemptResult {
	r := AttemptResult{
		AttemptID:      a.ID,
		CorrectAnswers: a.CorrectAnswers,
		TotalQuestions: a.TotalQuestions,
		Passed:         a.Passed,
	}
	if a.Score != nil {
		r.Score = *a.Score
	}
	if a.CompletedAt != nil {
		r.CompletedAt = *a.CompletedAt
	}
	return r
}

// StartedAttempt is returned to the participant when an attempt begins.
type StartedAttempt struct {
	ID             uuid.UUID `json:"id"`
	ExamID         uuid.UUID `json:"exam_id"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
}

// SubmitAttemptRequest is the payload for submitting answers.
// Keys are question ids, values the literal option text.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

// SubmissionResult is the post-grading review returned to the participant.
type SubmissionResult struct {
	AttemptID      uuid.UUID      `json:"attempt_id"`
	Score          float64        `json:"score"`
	CorrectAnswers int            `json:"correct_answers"`
	TotalQuestions int            `json:"total_questions"`
	Passed         bool           `json:"passed"`
	Honors         string         `json:"honors,omitempty"`
	Questions      []ExamQuestion `json:"questions"`
	Certificate    *Certificate   `json:"certificate,omitempty"`
}
