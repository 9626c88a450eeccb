package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitHalfCorrectPasses(t *testing.T) {
	f := newFixture(t, 50, "A", "B")
	ctx := context.Background()
	a := f.start(t, testUser)

	res, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{
		f.qid(0): "A",
		f.qid(1): "C",
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.Score)
	assert.Equal(t, 1, res.CorrectAnswers)
	assert.Equal(t, 2, res.TotalQuestions)
	assert.True(t, res.Passed)
	assert.Equal(t, "", res.Honors)
	require.NotNil(t, res.Certificate)
	assert.Nil(t, res.Certificate.Honors)
	assert.Equal(t, "50", res.Certificate.Grade)

	require.Len(t, res.Questions, 2)
	assert.Equal(t, "A", res.Questions[0].CorrectAnswer, "review includes the answer key")
}

func TestSubmitAllCorrectIssuesOneCertificate(t *testing.T) {
	f := newFixture(t, 50, "A", "B")
	ctx := context.Background()
	a := f.start(t, testUser)

	res, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{
		f.qid(0): "A",
		f.qid(1): "B",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, "excellent with honors", res.Honors)
	require.NotNil(t, res.Certificate)
	require.NotNil(t, res.Certificate.Honors)
	assert.Equal(t, "excellent with honors", *res.Certificate.Honors)
	assert.Equal(t, "Ada Lovelace", res.Certificate.StudentName)
	assert.Equal(t, "Distributed Systems", res.Certificate.Specialization)

	again, err := f.guard.IssueCertificateIfEligible(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Certificate.ID, again.ID)

	certs, err := f.guard.ListCertificates(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.Len(t, f.events.certs, 1)
}

func TestSubmitOmittedAnswerCountsAsWrong(t *testing.T) {
	omitted := newFixture(t, 50, "A", "B")
	wrong := newFixture(t, 50, "A", "B")
	ctx := context.Background()

	a := omitted.start(t, testUser)
	resOmitted, err := omitted.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{omitted.qid(0): "A"})
	require.NoError(t, err)

	b := wrong.start(t, testUser)
	resWrong, err := wrong.guard.SubmitAttempt(ctx, testUser, b.ID, map[string]string{wrong.qid(0): "A", wrong.qid(1): "Z"})
	require.NoError(t, err)

	assert.Equal(t, resWrong.Score, resOmitted.Score)
	assert.Equal(t, resWrong.CorrectAnswers, resOmitted.CorrectAnswers)
}

func TestSubmitIgnoresUnknownQuestionIDs(t *testing.T) {
	f := newFixture(t, 70, "A")
	ctx := context.Background()
	a := f.start(t, testUser)

	res, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{
		f.qid(0):         "A",
		uuid.NewString(): "A",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 1, res.TotalQuestions)

	stored, err := f.ledger.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Answers, 1)
}

func TestSubmitFailingAttemptHasNoCertificate(t *testing.T) {
	f := newFixture(t, 70, "A", "B", "C")
	ctx := context.Background()
	a := f.start(t, testUser)

	res, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "A"})
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Nil(t, res.Certificate)
	assert.Empty(t, res.Honors)

	cert, err := f.guard.IssueCertificateIfEligible(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, cert)
}

func TestGetExamForParticipant(t *testing.T) {
	f := newFixture(t, 70, "A", "B")
	ctx := context.Background()

	t.Run("by course id hides answers", func(t *testing.T) {
		pe, err := f.guard.GetExamForParticipant(ctx, testUser, f.course.ID)
		require.NoError(t, err)
		assert.Equal(t, f.exam.ID, pe.Exam.ID)
		require.Len(t, pe.Questions, 2)
		assert.Equal(t, f.questions[0].ID, pe.Questions[0].ID)

		payload, err := json.Marshal(pe)
		require.NoError(t, err)
		assert.NotContains(t, string(payload), "correct_answer")
	})

	t.Run("by exam id", func(t *testing.T) {
		pe, err := f.guard.GetExamForParticipant(ctx, testUser, f.exam.ID)
		require.NoError(t, err)
		assert.Equal(t, f.exam.ID, pe.Exam.ID)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.guard.GetExamForParticipant(ctx, testUser, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("completed pair gets prior result only", func(t *testing.T) {
		a := f.start(t, testUser)
		_, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "A", f.qid(1): "B"})
		require.NoError(t, err)

		pe, err := f.guard.GetExamForParticipant(ctx, testUser, f.course.ID)
		assert.Nil(t, pe)
		ac, ok := AsAlreadyCompleted(err)
		require.True(t, ok)
		assert.Equal(t, a.ID, ac.Result().AttemptID)
		assert.Equal(t, 100.0, ac.Result().Score)

		_, err = f.guard.StartAttempt(ctx, testUser, f.exam.ID)
		_, ok = AsAlreadyCompleted(err)
		assert.True(t, ok)
	})

	t.Run("other users are unaffected", func(t *testing.T) {
		pe, err := f.guard.GetExamForParticipant(ctx, "someone-else", f.course.ID)
		require.NoError(t, err)
		assert.Len(t, pe.Questions, 2)
	})
}

func TestStartAttemptPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("no questions", func(t *testing.T) {
		f := newFixture(t, 70)
		_, err := f.guard.StartAttempt(ctx, testUser, f.exam.ID)
		assert.ErrorIs(t, err, ErrNoQuestions)
	})

	t.Run("inactive exam", func(t *testing.T) {
		f := newFixture(t, 70, "A")
		require.NoError(t, f.catalog.SetExamActive(ctx, f.exam.ID, false))
		_, err := f.guard.StartAttempt(ctx, testUser, f.exam.ID)
		assert.ErrorIs(t, err, ErrExamInactive)
	})

	t.Run("abandoned attempts do not block", func(t *testing.T) {
		f := newFixture(t, 70, "A")
		first := f.start(t, testUser)
		second := f.start(t, testUser)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, 1, second.TotalQuestions)
	})
}

func TestSubmitAttemptErrors(t *testing.T) {
	f := newFixture(t, 70, "A")
	ctx := context.Background()
	a := f.start(t, testUser)

	_, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.guard.SubmitAttempt(ctx, testUser, uuid.New(), map[string]string{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.guard.SubmitAttempt(ctx, "intruder", a.ID, map[string]string{})
	assert.ErrorIs(t, err, ErrOwnershipMismatch)

	_, err = f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "A"})
	require.NoError(t, err)

	_, err = f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "wrong"})
	ac, ok := AsAlreadyCompleted(err)
	require.True(t, ok)
	assert.Equal(t, 100.0, ac.Result().Score, "prior result is unchanged")
}

func TestConcurrentSubmitsCompleteExactlyOnce(t *testing.T) {
	f := newFixture(t, 50, "A", "B")
	ctx := context.Background()

	const n = 8
	attempts := make([]*model.StartedAttempt, n)
	for i := range attempts {
		attempts[i] = f.start(t, testUser)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []uuid.UUID
		losers    []*AlreadyCompletedError
		others    []error
	)
	for _, a := range attempts {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.guard.SubmitAttempt(ctx, testUser, id, map[string]string{f.qid(0): "A", f.qid(1): "B"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes = append(successes, id)
				return
			}
			if ac, ok := AsAlreadyCompleted(err); ok {
				losers = append(losers, ac)
				return
			}
			others = append(others, err)
		}(a.ID)
	}
	wg.Wait()

	require.Empty(t, others)
	require.Len(t, successes, 1)
	assert.Len(t, losers, n-1)
	for _, l := range losers {
		assert.Equal(t, successes[0], l.Attempt.ID)
	}

	certs, err := f.guard.ListCertificates(ctx, testUser)
	require.NoError(t, err)
	assert.Len(t, certs, 1)
}

func TestCertificateFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture(t, 50, "A")
	ctx := context.Background()
	a := f.start(t, testUser)

	f.certs.setFail(true)
	res, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "A"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Nil(t, res.Certificate)
	assert.Equal(t, []uuid.UUID{a.ID}, f.reissue.ids)

	stored, err := f.ledger.GetAttempt(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsCompleted(), "attempt stays finalized")

	f.certs.setFail(false)
	issued, err := f.guard.ReissueMissing(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, issued)

	cert, err := f.guard.GetCertificate(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.Equal(t, CertificateID(a.ID), cert.ID)

	issued, err = f.guard.ReissueMissing(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, issued)
}

func TestIssueFallsBackWhenCourseIsMissing(t *testing.T) {
	f := newFixture(t, 50, "A")
	ctx := context.Background()

	orphan := &model.Exam{CourseID: uuid.New(), Title: "Orphan", PassingGrade: 50, IsActive: true}
	require.NoError(t, f.store.Exams.CreateExam(ctx, orphan))
	require.NoError(t, f.catalog.AddQuestion(ctx, &model.ExamQuestion{
		ExamID: orphan.ID, QuestionText: "q", Options: []string{"A", "B"}, CorrectAnswer: "A", OrderNum: 1,
	}))
	f.mem.PutUser(model.User{ID: "nameless", Email: "linus@example.com"})

	a, err := f.guard.StartAttempt(ctx, "nameless", orphan.ID)
	require.NoError(t, err)
	qs, err := f.catalog.GetQuestions(ctx, orphan.ID)
	require.NoError(t, err)

	res, err := f.guard.SubmitAttempt(ctx, "nameless", a.ID, map[string]string{qs[0].ID.String(): "A"})
	require.NoError(t, err)
	require.NotNil(t, res.Certificate)
	assert.Equal(t, model.FallbackSpecialization, res.Certificate.Specialization)
	assert.Equal(t, "linus", res.Certificate.StudentName)
}

func TestGetCertificateOwnership(t *testing.T) {
	f := newFixture(t, 50, "A")
	ctx := context.Background()
	a := f.start(t, testUser)
	_, err := f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "A"})
	require.NoError(t, err)

	_, err = f.guard.GetCertificate(ctx, "intruder", a.ID)
	assert.True(t, errors.Is(err, ErrOwnershipMismatch))

	_, err = f.guard.GetCertificate(ctx, testUser, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIssueCertificateForUser(t *testing.T) {
	f := newFixture(t, 50, "A")
	ctx := context.Background()
	a := f.start(t, testUser)

	cert, err := f.guard.IssueCertificateForUser(ctx, testUser, a.ID)
	require.NoError(t, err)
	assert.Nil(t, cert, "in-progress attempts are not eligible")

	f.certs.setFail(true)
	_, err = f.guard.SubmitAttempt(ctx, testUser, a.ID, map[string]string{f.qid(0): "A"})
	require.NoError(t, err)
	f.certs.setFail(false)

	_, err = f.guard.IssueCertificateForUser(ctx, "intruder", a.ID)
	assert.ErrorIs(t, err, ErrOwnershipMismatch)

	cert, err = f.guard.IssueCertificateForUser(ctx, testUser, a.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.Equal(t, a.ID, cert.ExamAttemptID)
}
