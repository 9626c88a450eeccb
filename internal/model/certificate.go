package model

import (
	"time"

	"github.com/google/uuid"
)

// FallbackSpecialization is snapshotted when the course cannot be resolved.
const FallbackSpecialization = "General Studies"

// Certificate is an immutable snapshot proving a passing attempt occurred.
type Certificate struct {
	ID                uuid.UUID `json:"id"`
	UserID            string    `json:"user_id"`
	CourseID          uuid.UUID `json:"course_id"`
	ExamAttemptID     uuid.UUID `json:"exam_attempt_id"`
	CertificateNumber string    `json:"certificate_number"`
	StudentName       string    `json:"student_name"`
	Grade             string    `json:"grade"`
	Specialization    string    `json:"specialization"`
	Honors            *string   `json:"honors,omitempty"`
	CompletionDate    time.Time `json:"completion_date"`
	IssuedAt          time.Time `json:"issued_at"`
}
