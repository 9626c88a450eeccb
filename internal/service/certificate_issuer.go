package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/metrics"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository"
	"github.com/stemsi/akademi-backend/internal/scoring"
	"golang.org/x/crypto/blake2b"
)

// certificateNamespace seeds the name-based UUIDs of certificates.
var certificateNamespace = uuid.MustParse("6f1c3a52-8d0e-4b7a-9c51-2e4f7d9a0b13")

// CertificateIssuer turns passing attempts into certificates. Everything it
// writes is derived from the attempt id, so issuing twice yields one row.
type CertificateIssuer struct {
	certs     repository.CertificateStore
	honors    scoring.HonorsScale
	publisher EventPublisher
	log       zerolog.Logger
}

// NewCertificateIssuer creates a new CertificateIssuer. publisher may be nil.
func NewCertificateIssuer(
	certs repository.CertificateStore,
	honors scoring.HonorsScale,
	publisher EventPublisher,
	log zerolog.Logger,
) *CertificateIssuer {
	return &CertificateIssuer{
		certs:     certs,
		honors:    honors,
		publisher: publisher,
		log:       log.With().Str("component", "certificate_issuer").Logger(),
	}
}

// numberDigestBytes is how much of the BLAKE2b digest a certificate number carries.
const numberDigestBytes = 10

// CertificateID derives the certificate id from its attempt.
func CertificateID(attemptID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(certificateNamespace, attemptID[:])
}

// CertificateNumber derives the human-readable number from its attempt,
// e.g. CERT-2026-3F9A1C0B7E42D85A6C13.
//
// The suffix keeps 80 bits of the digest so a collision on the unique
// number, which would make the attempt unissuable, stays out of reach.
func CertificateNumber(attempt *model.ExamAttempt) string {
	sum := blake2b.Sum256(attempt.ID[:])
	return fmt.Sprintf("CERT-%d-%s", attempt.CompletedAt.UTC().Year(), strings.ToUpper(hex.EncodeToString(sum[:numberDigestBytes])))
}

// FormatGrade renders a percentage as the raw decimal text snapshotted on certificates.
func FormatGrade(percentage float64) string {
	return strconv.FormatFloat(percentage, 'f', -1, 64)
}

// Classify returns the honors label this issuer would snapshot for a percentage.
func (i *CertificateIssuer) Classify(percentage float64) string {
	return i.honors.Classify(percentage)
}

// IssueIfPassed returns nil, nil for attempts that are not completed and passed.
// course may be nil when the course cannot be resolved.
func (i *CertificateIssuer) IssueIfPassed(
	ctx context.Context,
	attempt *model.ExamAttempt,
	course *model.Course,
	user *model.User,
) (*model.Certificate, error) {
	if !attempt.IsCompleted() || !attempt.Passed {
		return nil, nil
	}

	existing, err := i.certs.GetByAttempt(ctx, attempt.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check existing certificate: %w", err)
	}

	cert := i.build(attempt, course, user)
	created, err := i.certs.CreateCertificate(ctx, cert)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}
	if !created {
		// Lost an insert race against a concurrent issuance of the same attempt.
		existing, err := i.certs.GetByAttempt(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("reload certificate: %w", err)
		}
		return existing, nil
	}

	honors := ""
	if cert.Honors != nil {
		honors = *cert.Honors
	}
	metrics.CertificatesIssued.WithLabelValues(honors).Inc()
	i.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("certificate_number", cert.CertificateNumber).
		Str("honors", honors).
		Msg("Certificate issued")

	if i.publisher != nil {
		if err := i.publisher.PublishCertificateIssued(ctx, cert); err != nil {
			i.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to publish certificate event")
		}
	}
	return cert, nil
}

func (i *CertificateIssuer) build(attempt *model.ExamAttempt, course *model.Course, user *model.User) *model.Certificate {
	var score float64
	if attempt.Score != nil {
		score = *attempt.Score
	}

	specialization := model.FallbackSpecialization
	if course != nil && strings.TrimSpace(course.Title) != "" {
		specialization = course.Title
	}

	var honors *string
	if label := i.honors.Classify(score); label != "" {
		honors = &label
	}

	return &model.Certificate{
		ID:                CertificateID(attempt.ID),
		UserID:            attempt.UserID,
		CourseID:          attempt.CourseID,
		ExamAttemptID:     attempt.ID,
		CertificateNumber: CertificateNumber(attempt),
		StudentName:       user.DisplayName(),
		Grade:             FormatGrade(score),
		Specialization:    specialization,
		Honors:            honors,
		CompletionDate:    *attempt.CompletedAt,
	}
}
