package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/akademi-backend/internal/model"
)

// Storage-level errors. Implementations translate driver errors onto these.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflicts with an existing one")
)

// ExamStore reads and maintains exam definitions.
type ExamStore interface {
	GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetActiveExamForCourse(ctx context.Context, courseID uuid.UUID) (*model.Exam, error)
	CreateExam(ctx context.Context, e *model.Exam) error
	SetExamActive(ctx context.Context, id uuid.UUID, active bool) error
}

// QuestionStore reads and mutates exam questions. Mutations keep
// exams.total_questions in sync.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestion, error)
	AddQuestion(ctx context.Context, q *model.ExamQuestion) error
	DeleteQuestion(ctx context.Context, examID, id uuid.UUID) error
}

// AttemptStore persists exam attempts.
//
// CompleteAttempt is a compare-and-set: it succeeds only if the attempt is
// still in progress and no other attempt of the same (user, exam) pair has
// completed. Otherwise it returns ErrConflict.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, a *model.ExamAttempt) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	FindCompletedAttempt(ctx context.Context, userID string, examID uuid.UUID) (*model.ExamAttempt, error)
	CompleteAttempt(ctx context.Context, a *model.ExamAttempt) error
	ListPassedWithoutCertificate(ctx context.Context, limit int) ([]model.ExamAttempt, error)
}

// CertificateStore persists certificates, at most one per attempt.
type CertificateStore interface {
	// CreateCertificate inserts c unless a certificate for c.ExamAttemptID
	// exists. created is false when the insert was skipped.
	CreateCertificate(ctx context.Context, c *model.Certificate) (created bool, err error)
	GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]model.Certificate, error)
}

// CourseLookup resolves course metadata owned by the course catalog.
type CourseLookup interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error)
}

// UserLookup resolves profile data owned by the identity system.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Store bundles every repository the services depend on.
type Store struct {
	Exams        ExamStore
	Questions    QuestionStore
	Attempts     AttemptStore
	Certificates CertificateStore
	Courses      CourseLookup
	Users        UserLookup
}

// NewPostgresStore wires the pgx-backed repositories onto one pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Exams:        NewExamRepository(pool),
		Questions:    NewQuestionRepository(pool),
		Attempts:     NewAttemptRepository(pool),
		Certificates: NewCertificateRepository(pool),
		Courses:      NewCourseRepository(pool),
		Users:        NewUserRepository(pool),
	}
}
