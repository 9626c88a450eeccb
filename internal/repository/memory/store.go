// Package memory is an in-process implementation of the repository
// interfaces. It backs STORE_DRIVER=memory and the service tests, and it
// enforces the same completion and certificate constraints as the SQL schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
)

// Store holds every table behind one mutex.
type Store struct {
	mu sync.RWMutex

	courses      map[uuid.UUID]model.Course
	users        map[string]model.User
	exams        map[uuid.UUID]model.Exam
	examOrder    []uuid.UUID
	questions    map[uuid.UUID]model.ExamQuestion
	attempts     map[uuid.UUID]model.ExamAttempt
	completed    map[pairKey]uuid.UUID
	certificates map[uuid.UUID]model.Certificate // by attempt id
	certNumbers  map[string]uuid.UUID

	now func() time.Time
}

type pairKey struct {
	userID string
	examID uuid.UUID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		courses:      make(map[uuid.UUID]model.Course),
		users:        make(map[string]model.User),
		exams:        make(map[uuid.UUID]model.Exam),
		questions:    make(map[uuid.UUID]model.ExamQuestion),
		attempts:     make(map[uuid.UUID]model.ExamAttempt),
		completed:    make(map[pairKey]uuid.UUID),
		certificates: make(map[uuid.UUID]model.Certificate),
		certNumbers:  make(map[string]uuid.UUID),
		now:          time.Now,
	}
}

// Bundle exposes the store through the repository interfaces.
func (s *Store) Bundle() *repository.Store {
	return &repository.Store{
		Exams:        s,
		Questions:    questionStore{s},
		Attempts:     s,
		Certificates: certificateStore{s},
		Courses:      s,
		Users:        s,
	}
}

// PutCourse upserts a course.
func (s *Store) PutCourse(c model.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

// PutUser upserts a user.
func (s *Store) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) GetCourse(_ context.Context, id uuid.UUID) (*model.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// ─── Exams ──────────────────────────────────────────────────────────

func (s *Store) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) GetActiveExamForCourse(_ context.Context, courseID uuid.UUID) (*model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.examOrder) - 1; i >= 0; i-- {
		e := s.exams[s.examOrder[i]]
		if e.CourseID == courseID && e.IsActive {
			return &e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateExam(_ context.Context, e *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if _, dup := s.exams[e.ID]; dup {
		return repository.ErrConflict
	}
	e.TotalQuestions = 0
	s.exams[e.ID] = *e
	s.examOrder = append(s.examOrder, e.ID)
	return nil
}

func (s *Store) SetExamActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.IsActive = active
	s.exams[id] = e
	return nil
}

// ─── Questions ──────────────────────────────────────────────────────

type questionStore struct{ s *Store }

func (q questionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.ExamQuestion, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	var out []model.ExamQuestion
	for _, question := range q.s.questions {
		if question.ExamID == examID {
			question.Options = append([]string(nil), question.Options...)
			out = append(out, question)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (q questionStore) AddQuestion(_ context.Context, question *model.ExamQuestion) error {
	if question.Points == 0 {
		question.Points = model.DefaultQuestionPoints
	}
	if err := question.Validate(); err != nil {
		return err
	}

	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	e, ok := q.s.exams[question.ExamID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, existing := range q.s.questions {
		if existing.ExamID == question.ExamID && existing.OrderNum == question.OrderNum {
			return repository.ErrConflict
		}
	}
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	stored := *question
	stored.Options = append([]string(nil), question.Options...)
	q.s.questions[question.ID] = stored
	e.TotalQuestions++
	q.s.exams[e.ID] = e
	return nil
}

func (q questionStore) DeleteQuestion(_ context.Context, examID, id uuid.UUID) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	question, ok := q.s.questions[id]
	if !ok || question.ExamID != examID {
		return repository.ErrNotFound
	}
	delete(q.s.questions, id)
	if e, ok := q.s.exams[question.ExamID]; ok {
		e.TotalQuestions--
		q.s.exams[e.ID] = e
	}
	return nil
}

// ─── Attempts ───────────────────────────────────────────────────────

func cloneAttempt(a model.ExamAttempt) *model.ExamAttempt {
	answers := make(map[string]string, len(a.Answers))
	for k, v := range a.Answers {
		answers[k] = v
	}
	a.Answers = answers
	return &a
}

func (s *Store) CreateAttempt(_ context.Context, a *model.ExamAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if _, dup := s.attempts[a.ID]; dup {
		return repository.ErrConflict
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	a.StartedAt = s.now()
	a.CompletedAt = nil
	s.attempts[a.ID] = *cloneAttempt(*a)
	return nil
}

func (s *Store) GetAttempt(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(a), nil
}

func (s *Store) FindCompletedAttempt(_ context.Context, userID string, examID uuid.UUID) (*model.ExamAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.completed[pairKey{userID, examID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAttempt(s.attempts[id]), nil
}

// CompleteAttempt emulates UPDATE ... WHERE completed_at IS NULL guarded by
// the partial unique index on (user_id, exam_id).
func (s *Store) CompleteAttempt(_ context.Context, a *model.ExamAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.attempts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.CompletedAt != nil {
		return repository.ErrConflict
	}
	key := pairKey{current.UserID, current.ExamID}
	if _, taken := s.completed[key]; taken {
		return repository.ErrConflict
	}

	current.Answers = a.Answers
	current.Score = a.Score
	current.CorrectAnswers = a.CorrectAnswers
	current.TotalQuestions = a.TotalQuestions
	current.Passed = a.Passed
	current.CompletedAt = a.CompletedAt
	current.DurationSeconds = a.DurationSeconds
	s.attempts[a.ID] = *cloneAttempt(current)
	s.completed[key] = a.ID
	return nil
}

func (s *Store) ListPassedWithoutCertificate(_ context.Context, limit int) ([]model.ExamAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ExamAttempt
	for _, id := range s.completed {
		a := s.attempts[id]
		if !a.Passed {
			continue
		}
		if _, issued := s.certificates[id]; issued {
			continue
		}
		out = append(out, *cloneAttempt(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(*out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─── Certificates ───────────────────────────────────────────────────

type certificateStore struct{ s *Store }

func (c certificateStore) CreateCertificate(_ context.Context, cert *model.Certificate) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if _, exists := c.s.certificates[cert.ExamAttemptID]; exists {
		return false, nil
	}
	if _, taken := c.s.certNumbers[cert.CertificateNumber]; taken {
		return false, repository.ErrConflict
	}
	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	cert.IssuedAt = c.s.now()
	c.s.certificates[cert.ExamAttemptID] = *cert
	c.s.certNumbers[cert.CertificateNumber] = cert.ExamAttemptID
	return true, nil
}

func (c certificateStore) GetByAttempt(_ context.Context, attemptID uuid.UUID) (*model.Certificate, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	cert, ok := c.s.certificates[attemptID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cert, nil
}

func (c certificateStore) ListByUser(_ context.Context, userID string) ([]model.Certificate, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	var out []model.Certificate
	for _, cert := range c.s.certificates {
		if cert.UserID == userID {
			out = append(out, cert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}
