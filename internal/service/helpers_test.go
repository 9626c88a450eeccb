package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/repository/memory"
	"github.com/stemsi/akademi-backend/internal/scoring"
	"github.com/stretchr/testify/require"
)

const testUser = "user-123"

type fixture struct {
	mem       *memory.Store
	store     *repository.Store
	certs     *flakyCertificates
	reissue   *recordingQueue
	events    *recordingPublisher
	catalog   *ExamCatalog
	ledger    *AttemptLedger
	issuer    *CertificateIssuer
	guard     *AccessGuard
	course    model.Course
	exam      *model.Exam
	questions []*model.ExamQuestion
}

// flakyCertificates fails CreateCertificate while fail is set.
type flakyCertificates struct {
	repository.CertificateStore
	mu   sync.Mutex
	fail bool
}

var errStorageDown = errors.New("storage down")

func (f *flakyCertificates) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *flakyCertificates) CreateCertificate(ctx context.Context, c *model.Certificate) (bool, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return false, errStorageDown
	}
	return f.CertificateStore.CreateCertificate(ctx, c)
}

type recordingQueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (q *recordingQueue) Enqueue(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	certs []*model.Certificate
}

func (p *recordingPublisher) PublishCertificateIssued(_ context.Context, c *model.Certificate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.certs = append(p.certs, c)
	return nil
}

// newFixture seeds a course, a user and an exam with the given passing grade
// whose questions have the given correct answers (order 10, 20, ...).
func newFixture(t *testing.T, passingGrade float64, correct ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	mem := memory.NewStore()
	store := mem.Bundle()
	f := &fixture{
		mem:     mem,
		certs:   &flakyCertificates{CertificateStore: store.Certificates},
		reissue: &recordingQueue{},
		events:  &recordingPublisher{},
	}
	store.Certificates = f.certs
	f.store = store

	f.course = model.Course{ID: uuid.New(), Title: "Distributed Systems"}
	mem.PutCourse(f.course)
	mem.PutUser(model.User{ID: testUser, Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"})

	f.exam = &model.Exam{CourseID: f.course.ID, Title: "Final", DurationMinutes: 60, PassingGrade: passingGrade, IsActive: true}
	require.NoError(t, store.Exams.CreateExam(ctx, f.exam))

	log := zerolog.Nop()
	f.catalog = NewExamCatalog(store.Exams, store.Questions, nil, 0, log)
	for i, answer := range correct {
		q := &model.ExamQuestion{
			ExamID:        f.exam.ID,
			QuestionText:  "question",
			Options:       []string{answer, "wrong"},
			CorrectAnswer: answer,
			OrderNum:      (i + 1) * 10,
		}
		require.NoError(t, f.catalog.AddQuestion(ctx, q))
		f.questions = append(f.questions, q)
	}

	f.ledger = NewAttemptLedger(store.Attempts)
	f.issuer = NewCertificateIssuer(store.Certificates, scoring.DefaultHonorsScale(), f.events, log)
	f.guard = NewAccessGuard(f.catalog, f.ledger, f.issuer, store, f.reissue, log)
	return f
}

func (f *fixture) qid(i int) string {
	return f.questions[i].ID.String()
}

func (f *fixture) start(t *testing.T, userID string) *model.StartedAttempt {
	t.Helper()
	a, err := f.guard.StartAttempt(context.Background(), userID, f.exam.ID)
	require.NoError(t, err)
	return a
}
