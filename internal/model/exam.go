package model

import (
	"github.com/google/uuid"
)

// DefaultPassingGrade is the passing grade callers choose when creating exams
// without one of their own. Stores never substitute it.
const DefaultPassingGrade = 70

// Exam represents an exam attached to a course.
type Exam struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	// PassingGrade is a percentage in [0, 100].
	PassingGrade   float64 `json:"passing_grade"`
	TotalQuestions int     `json:"total_questions"`
	IsActive       bool    `json:"is_active"`
}

// ParticipantExam is what an exam-taker sees before grading: no correct answers.
type ParticipantExam struct {
	Exam      Exam                 `json:"exam"`
	Questions []QuestionForStudent `json:"questions"`
}
