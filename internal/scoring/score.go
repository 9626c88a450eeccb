package scoring

import (
	"github.com/stemsi/akademi-backend/internal/model"
)

// Result is the outcome of grading one submission. TotalPoints and
// EarnedPoints track question weights; they do not feed into Percentage.
type Result struct {
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	TotalPoints    float64 `json:"total_points"`
	EarnedPoints   float64 `json:"earned_points"`
	Percentage     float64 `json:"percentage"`
	Passed         bool    `json:"passed"`
}

// Passes reports whether the percentage meets the given passing grade.
func (r Result) Passes(passingGrade float64) bool {
	return r.Percentage >= passingGrade
}

// Score grades submitted answers against the question set.
//
// A question is correct only when the submitted text equals the correct answer
// byte for byte. Questions missing from answers count as incorrect and answer
// keys that match no question are ignored. The percentage is
// correct / len(questions) * 100, regardless of point weights.
func Score(answers map[string]string, questions []model.ExamQuestion, passingGrade float64) Result {
	r := Result{TotalQuestions: len(questions)}

	for _, q := range questions {
		r.TotalPoints += q.Points
		submitted, ok := answers[q.ID.String()]
		if !ok || submitted != q.CorrectAnswer {
			continue
		}
		r.CorrectCount++
		r.EarnedPoints += q.Points
	}

	if r.TotalQuestions > 0 {
		r.Percentage = float64(r.CorrectCount) / float64(r.TotalQuestions) * 100
	}
	r.Passed = r.Passes(passingGrade)
	return r
}

// FilterKnown drops answer keys that do not belong to the question set.
func FilterKnown(answers map[string]string, questions []model.ExamQuestion) map[string]string {
	known := make(map[string]string, len(questions))
	for _, q := range questions {
		id := q.ID.String()
		if v, ok := answers[id]; ok {
			known[id] = v
		}
	}
	return known
}
