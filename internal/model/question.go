package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Option count bounds for a multiple-choice question.
const (
	MinOptions = 2
	MaxOptions = 6
)

// DefaultQuestionPoints is the weight given to a question stored without one.
const DefaultQuestionPoints = 1.0

// ExamQuestion represents a single multiple-choice question of an exam.
type ExamQuestion struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	OrderNum      int       `json:"order_num"`
	Points        float64   `json:"points"`
}

// QuestionForStudent is a question without the correct answer, sent to participants.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
	OrderNum     int       `json:"order_num"`
	Points       float64   `json:"points"`
}

// Redact strips the correct answer.
func (q ExamQuestion) Redact() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      append([]string(nil), q.Options...),
		OrderNum:     q.OrderNum,
		Points:       q.Points,
	}
}

// ErrInvalidQuestion is wrapped by every Validate failure.
var ErrInvalidQuestion = errors.New("invalid question")

// Validate enforces the write-time invariants of a question.
func (q ExamQuestion) Validate() error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if n := len(q.Options); n < MinOptions || n > MaxOptions {
		return fmt.Errorf("%w: %d options, want %d to %d", ErrInvalidQuestion, n, MinOptions, MaxOptions)
	}
	member := false
	for i, o := range q.Options {
		if o == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i)
		}
		if o == q.CorrectAnswer {
			member = true
		}
	}
	if !member {
		return fmt.Errorf("%w: correct answer is not one of the options", ErrInvalidQuestion)
	}
	if q.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrInvalidQuestion)
	}
	return nil
}
