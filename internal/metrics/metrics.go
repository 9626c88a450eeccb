package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "exam_attempts_started_total",
			Help: "Total number of exam attempts started",
		},
	)

	AttemptsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_attempts_submitted_total",
			Help: "Submissions by outcome (passed, failed, already_completed)",
		},
		[]string{"outcome"},
	)

	AttemptScoreHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exam_attempt_score",
			Help:    "Distribution of graded attempt percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	CertificatesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "certificates_issued_total",
			Help: "Certificates created, by honors label",
		},
		[]string{"honors"},
	)

	CertificateIssueFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "certificate_issue_failures_total",
			Help: "Certificate issuance attempts that failed and were queued for retry",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

// Submission outcome label values.
const (
	OutcomePassed           = "passed"
	OutcomeFailed           = "failed"
	OutcomeAlreadyCompleted = "already_completed"
)
