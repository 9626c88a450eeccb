package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/metrics"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/scoring"
)

// AccessGuard drives the NotStarted -> InProgress -> Completed workflow of a
// (user, exam) pair. Once Completed, every entry point answers with an
// *AlreadyCompletedError carrying the prior result instead of exam content.
type AccessGuard struct {
	catalog *ExamCatalog
	ledger  *AttemptLedger
	issuer  *CertificateIssuer
	courses repository.CourseLookup
	users   repository.UserLookup
	certs   repository.CertificateStore
	reissue ReissueQueue
	log     zerolog.Logger
	now     func() time.Time
}

// NewAccessGuard creates a new AccessGuard. reissue may be nil, in which case
// failed issuances are only picked up by the periodic sweep.
func NewAccessGuard(
	catalog *ExamCatalog,
	ledger *AttemptLedger,
	issuer *CertificateIssuer,
	store *repository.Store,
	reissue ReissueQueue,
	log zerolog.Logger,
) *AccessGuard {
	return &AccessGuard{
		catalog: catalog,
		ledger:  ledger,
		issuer:  issuer,
		courses: store.Courses,
		users:   store.Users,
		certs:   store.Certificates,
		reissue: reissue,
		log:     log.With().Str("component", "access_guard").Logger(),
		now:     time.Now,
	}
}

// GetExamForParticipant resolves a course or exam id and returns the exam
// with answer-free questions.
func (g *AccessGuard) GetExamForParticipant(ctx context.Context, userID string, courseOrExamID uuid.UUID) (*model.ParticipantExam, error) {
	exam, err := g.catalog.ResolveExam(ctx, courseOrExamID)
	if err != nil {
		return nil, err
	}
	if err := g.ensureNotCompleted(ctx, userID, exam.ID); err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, fmt.Errorf("exam %s: %w", exam.ID, ErrNotFound)
	}

	questions, err := g.catalog.GetQuestionsWithoutAnswers(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	return &model.ParticipantExam{Exam: *exam, Questions: questions}, nil
}

// StartAttempt opens a new in-progress attempt. Earlier abandoned attempts do not block it.
func (g *AccessGuard) StartAttempt(ctx context.Context, userID string, examID uuid.UUID) (*model.StartedAttempt, error) {
	exam, err := g.catalog.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if err := g.ensureNotCompleted(ctx, userID, exam.ID); err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, ErrExamInactive
	}

	questions, err := g.catalog.GetQuestions(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	a, err := g.ledger.StartAttempt(ctx, userID, exam.ID, exam.CourseID, len(questions))
	if err != nil {
		return nil, err
	}
	metrics.AttemptsStarted.Inc()
	g.log.Debug().
		Str("user_id", userID).
		Str("exam_id", exam.ID.String()).
		Str("attempt_id", a.ID.String()).
		Msg("Attempt started")

	return &model.StartedAttempt{
		ID:             a.ID,
		ExamID:         a.ExamID,
		TotalQuestions: a.TotalQuestions,
		StartedAt:      a.StartedAt,
	}, nil
}

// SubmitAttempt grades and finalizes an attempt, then issues a certificate
// when it passed. Certificate failures never fail the submission.
func (g *AccessGuard) SubmitAttempt(ctx context.Context, userID string, attemptID uuid.UUID, answers map[string]string) (*model.SubmissionResult, error) {
	if answers == nil {
		return nil, fmt.Errorf("%w: answers must be an object", ErrValidation)
	}

	attempt, err := g.ledger.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrOwnershipMismatch
	}
	if attempt.IsCompleted() {
		metrics.AttemptsSubmitted.WithLabelValues(metrics.OutcomeAlreadyCompleted).Inc()
		return nil, &AlreadyCompletedError{Attempt: attempt}
	}
	if err := g.ensureNotCompleted(ctx, userID, attempt.ExamID); err != nil {
		metrics.AttemptsSubmitted.WithLabelValues(metrics.OutcomeAlreadyCompleted).Inc()
		return nil, err
	}

	exam, err := g.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	questions, err := g.catalog.GetQuestions(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	known := scoring.FilterKnown(answers, questions)
	result := scoring.Score(known, questions, exam.PassingGrade)
	completedAt := g.now()

	finalized, err := g.ledger.Finalize(ctx, userID, attempt.ID, FinalizeInput{
		Answers:        known,
		Score:          result.Percentage,
		CorrectAnswers: result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		Passed:         result.Passed,
		CompletedAt:    completedAt,
		Duration:       completedAt.Sub(attempt.StartedAt),
	})
	if err != nil {
		if _, ok := AsAlreadyCompleted(err); ok {
			metrics.AttemptsSubmitted.WithLabelValues(metrics.OutcomeAlreadyCompleted).Inc()
		}
		return nil, err
	}

	outcome := metrics.OutcomeFailed
	if finalized.Passed {
		outcome = metrics.OutcomePassed
	}
	metrics.AttemptsSubmitted.WithLabelValues(outcome).Inc()
	metrics.AttemptScoreHistogram.Observe(result.Percentage)

	g.log.Info().
		Str("user_id", userID).
		Str("attempt_id", finalized.ID.String()).
		Float64("score", result.Percentage).
		Int("correct", result.CorrectCount).
		Int("total", result.TotalQuestions).
		Bool("passed", result.Passed).
		Msg("Attempt submitted and graded")

	out := &model.SubmissionResult{
		AttemptID:      finalized.ID,
		Score:          result.Percentage,
		CorrectAnswers: result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		Passed:         result.Passed,
		Questions:      questions,
	}
	if finalized.Passed {
		out.Honors = g.issuer.Classify(result.Percentage)
		cert, err := g.issue(ctx, finalized, exam)
		if err != nil {
			g.scheduleReissue(ctx, finalized.ID, err)
		}
		out.Certificate = cert
	}
	return out, nil
}

// IssueCertificateIfEligible issues (or returns the existing) certificate of
// a completed, passed attempt. Other attempts yield nil, nil.
func (g *AccessGuard) IssueCertificateIfEligible(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error) {
	attempt, err := g.ledger.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsCompleted() || !attempt.Passed {
		return nil, nil
	}
	exam, err := g.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	return g.issue(ctx, attempt, exam)
}

// IssueCertificateForUser is IssueCertificateIfEligible restricted to the
// attempt owner. It backs manual re-issuance requests.
func (g *AccessGuard) IssueCertificateForUser(ctx context.Context, userID string, attemptID uuid.UUID) (*model.Certificate, error) {
	attempt, err := g.ledger.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, ErrOwnershipMismatch
	}
	return g.IssueCertificateIfEligible(ctx, attemptID)
}

// GetCertificate returns the certificate of one of the caller's attempts.
func (g *AccessGuard) GetCertificate(ctx context.Context, userID string, attemptID uuid.UUID) (*model.Certificate, error) {
	cert, err := g.certs.GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, notFound(err, "certificate")
	}
	if cert.UserID != userID {
		return nil, ErrOwnershipMismatch
	}
	return cert, nil
}

// ListCertificates returns the caller's certificates, newest first.
func (g *AccessGuard) ListCertificates(ctx context.Context, userID string) ([]model.Certificate, error) {
	certs, err := g.certs.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if certs == nil {
		certs = []model.Certificate{}
	}
	return certs, nil
}

// ReissueMissing sweeps passed attempts lacking a certificate and issues them.
// It returns how many certificates were produced.
func (g *AccessGuard) ReissueMissing(ctx context.Context, limit int) (int, error) {
	pending, err := g.ledger.ListPassedWithoutCertificate(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list passed attempts without certificate: %w", err)
	}

	issued := 0
	for i := range pending {
		cert, err := g.IssueCertificateIfEligible(ctx, pending[i].ID)
		if err != nil {
			g.log.Error().Err(err).Str("attempt_id", pending[i].ID.String()).Msg("Re-issuance failed")
			continue
		}
		if cert != nil {
			issued++
		}
	}
	return issued, nil
}

func (g *AccessGuard) ensureNotCompleted(ctx context.Context, userID string, examID uuid.UUID) error {
	done, err := g.ledger.FindCompletedAttempt(ctx, userID, examID)
	if err != nil {
		return err
	}
	if done != nil {
		return &AlreadyCompletedError{Attempt: done}
	}
	return nil
}

func (g *AccessGuard) issue(ctx context.Context, attempt *model.ExamAttempt, exam *model.Exam) (*model.Certificate, error) {
	courseID := attempt.CourseID
	if courseID == uuid.Nil {
		courseID = exam.CourseID
	}
	course, err := g.courses.GetCourse(ctx, courseID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get course: %w", err)
		}
		course = nil
	}

	user, err := g.users.GetUser(ctx, attempt.UserID)
	if err != nil {
		return nil, notFound(err, "user")
	}

	return g.issuer.IssueIfPassed(ctx, attempt, course, user)
}

func (g *AccessGuard) scheduleReissue(ctx context.Context, attemptID uuid.UUID, cause error) {
	metrics.CertificateIssueFailures.Inc()
	g.log.Error().Err(cause).Str("attempt_id", attemptID.String()).Msg("Certificate issuance failed, scheduling retry")

	if g.reissue == nil {
		return
	}
	if err := g.reissue.Enqueue(ctx, attemptID); err != nil {
		g.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to enqueue certificate re-issuance")
	}
}
