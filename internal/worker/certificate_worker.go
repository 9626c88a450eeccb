package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
	SweepLimit   = 200

	flushTimeout = 10 * time.Second
	errorBackoff = 3 * time.Second
)

// errBadPayload marks queue entries that are not attempt ids.
var errBadPayload = errors.New("invalid queue payload")

// Reissuer issues missing certificates. service.AccessGuard implements it.
type Reissuer interface {
	IssueCertificateIfEligible(ctx context.Context, attemptID uuid.UUID) (*model.Certificate, error)
	ReissueMissing(ctx context.Context, limit int) (int, error)
}

// AttemptQueue yields attempt ids scheduled for re-issuance.
type AttemptQueue interface {
	// Pop blocks up to timeout. ok is false when nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) (id uuid.UUID, ok bool, err error)
}

// RedisAttemptQueue consumes config.WorkerKey.ReissueCertificatesQueue.
type RedisAttemptQueue struct {
	rdb *redis.Client
}

// NewRedisAttemptQueue creates a new RedisAttemptQueue.
func NewRedisAttemptQueue(rdb *redis.Client) *RedisAttemptQueue {
	return &RedisAttemptQueue{rdb: rdb}
}

// Pop implements AttemptQueue with BLPOP.
func (q *RedisAttemptQueue) Pop(ctx context.Context, timeout time.Duration) (uuid.UUID, bool, error) {
	item, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.ReissueCertificatesQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	if len(item) < 2 {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(item[1])
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %q", errBadPayload, item[1])
	}
	return id, true, nil
}

// CertificateWorker retries certificate issuance out of band. It drains the
// re-issuance queue in batches and periodically sweeps for passed attempts
// that still have no certificate.
type CertificateWorker struct {
	reissuer   Reissuer
	queue      AttemptQueue
	sweepEvery time.Duration
	log        zerolog.Logger
}

// NewCertificateWorker creates a new CertificateWorker. queue may be nil to
// run the sweep only; a non-positive sweepEvery disables the sweep.
func NewCertificateWorker(reissuer Reissuer, queue AttemptQueue, sweepEvery time.Duration, log zerolog.Logger) *CertificateWorker {
	return &CertificateWorker{
		reissuer:   reissuer,
		queue:      queue,
		sweepEvery: sweepEvery,
		log:        log.With().Str("component", "certificate_worker").Logger(),
	}
}

// Start blocks until ctx is cancelled and the pending batch is flushed.
func (w *CertificateWorker) Start(ctx context.Context) {
	w.log.Info().
		Bool("queue", w.queue != nil).
		Dur("sweep_every", w.sweepEvery).
		Msg("CertificateWorker started")

	var wg sync.WaitGroup
	if w.sweepEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.sweepLoop(ctx)
		}()
	}
	if w.queue != nil {
		w.consume(ctx)
	}
	wg.Wait()

	w.log.Info().Msg("CertificateWorker stopped")
}

// Sweep runs one pass over passed attempts without a certificate.
func (w *CertificateWorker) Sweep(ctx context.Context) (int, error) {
	issued, err := w.reissuer.ReissueMissing(ctx, SweepLimit)
	if err != nil {
		return 0, err
	}
	if issued > 0 {
		w.log.Info().Int("issued", issued).Msg("Sweep issued missing certificates")
	}
	return issued, nil
}

func (w *CertificateWorker) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Sweep failed")
			}
		}
	}
}

// ----------------------------------------------------------------
// Queue loop with batching
// ----------------------------------------------------------------

func (w *CertificateWorker) consume(ctx context.Context) {
	batch := make([]uuid.UUID, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			w.flush(flushCtx, batch)
			cancel()
			return
		default:
		}

		id, ok, err := w.queue.Pop(ctx, PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, errBadPayload) {
				w.log.Warn().Err(err).Msg("Dropping queue entry")
				continue
			}
			w.log.Error().Err(err).Msg("Queue error, backing off")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}
		if ok {
			batch = append(batch, id)
		}
	}
}

// flush issues each distinct attempt of the batch once.
func (w *CertificateWorker) flush(ctx context.Context, batch []uuid.UUID) {
	if len(batch) == 0 {
		return
	}

	seen := make(map[uuid.UUID]struct{}, len(batch))
	issued := 0
	for _, id := range batch {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		cert, err := w.reissuer.IssueCertificateIfEligible(ctx, id)
		if err != nil {
			// The periodic sweep picks it up again.
			w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Re-issuance failed")
			continue
		}
		if cert != nil {
			issued++
		}
	}

	w.log.Debug().Int("batch", len(batch)).Int("issued", issued).Msg("Re-issuance batch flushed")
}
