package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/akademi-backend/internal/model"
)

const certificateColumns = `id, user_id, course_id, exam_attempt_id, certificate_number, student_name,
	grade, specialization, honors, completion_date, issued_at`

// CertificateRepository handles certificate data access.
type CertificateRepository struct {
	pool *pgxpool.Pool
}

// NewCertificateRepository creates a new CertificateRepository.
func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{pool: pool}
}

func scanCertificate(row pgx.Row) (*model.Certificate, error) {
	c := &model.Certificate{}
	err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.ExamAttemptID, &c.CertificateNumber, &c.StudentName,
		&c.Grade, &c.Specialization, &c.Honors, &c.CompletionDate, &c.IssuedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCertificate inserts a certificate keyed by its attempt.
// A second insert for the same attempt is a no-op reported as created=false.
func (r *CertificateRepository) CreateCertificate(ctx context.Context, c *model.Certificate) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO certificates (id, user_id, course_id, exam_attempt_id, certificate_number,
		                           student_name, grade, specialization, honors, completion_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (exam_attempt_id) DO NOTHING
		 RETURNING issued_at`,
		c.ID, c.UserID, c.CourseID, c.ExamAttemptID, c.CertificateNumber,
		c.StudentName, c.Grade, c.Specialization, c.Honors, c.CompletionDate,
	).Scan(&c.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translate(err)
	}
	return true, nil
}

// GetByAttempt retrieves the certificate issued for an attempt.
func (r *CertificateRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error) {
	c, err := scanCertificate(r.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE exam_attempt_id = $1`, attemptID))
	return c, translate(err)
}

// ListByUser retrieves a user's certificates, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]model.Certificate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+certificateColumns+`
		 FROM certificates
		 WHERE user_id = $1
		 ORDER BY issued_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		certs = append(certs, *c)
	}
	return certs, rows.Err()
}
