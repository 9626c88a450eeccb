package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/akademi-backend/internal/config"
	"github.com/stemsi/akademi-backend/internal/model"
)

// EventPublisher fans domain events out to connected clients.
type EventPublisher interface {
	PublishCertificateIssued(ctx context.Context, cert *model.Certificate) error
}

// EventTypeCertificateIssued tags UserEvent payloads.
const EventTypeCertificateIssued = "certificate_issued"

// UserEvent is the message published on a user's events channel.
type UserEvent struct {
	Type        string             `json:"type"`
	Certificate *model.Certificate `json:"certificate,omitempty"`
}

// RedisEventPublisher publishes events over Redis Pub/Sub.
type RedisEventPublisher struct {
	rdb *redis.Client
}

// NewRedisEventPublisher creates a new RedisEventPublisher.
func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb}
}

// PublishCertificateIssued notifies the certificate owner.
func (p *RedisEventPublisher) PublishCertificateIssued(ctx context.Context, cert *model.Certificate) error {
	payload, err := json.Marshal(UserEvent{Type: EventTypeCertificateIssued, Certificate: cert})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.rdb.Publish(ctx, config.CacheKey.UserEventsChannel(cert.UserID), payload).Err()
}

// ReissueQueue schedules out-of-band certificate issuance retries.
type ReissueQueue interface {
	Enqueue(ctx context.Context, attemptID uuid.UUID) error
}

// RedisReissueQueue pushes attempt ids onto the re-issuance list consumed by
// worker.CertificateWorker.
type RedisReissueQueue struct {
	rdb *redis.Client
}

// NewRedisReissueQueue creates a new RedisReissueQueue.
func NewRedisReissueQueue(rdb *redis.Client) *RedisReissueQueue {
	return &RedisReissueQueue{rdb: rdb}
}

// Enqueue appends an attempt id to the queue.
func (q *RedisReissueQueue) Enqueue(ctx context.Context, attemptID uuid.UUID) error {
	return q.rdb.RPush(ctx, config.WorkerKey.ReissueCertificatesQueue, attemptID.String()).Err()
}

// EventSubscriber streams the raw event payloads of one user until ctx ends.
type EventSubscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan []byte, error)
}

// RedisEventSubscriber reads a user's events channel over Redis Pub/Sub.
type RedisEventSubscriber struct {
	rdb *redis.Client
}

// NewRedisEventSubscriber creates a new RedisEventSubscriber.
func NewRedisEventSubscriber(rdb *redis.Client) *RedisEventSubscriber {
	return &RedisEventSubscriber{rdb: rdb}
}

// Subscribe confirms the subscription before returning. The channel is
// closed when ctx is done or the subscription drops.
func (s *RedisEventSubscriber) Subscribe(ctx context.Context, userID string) (<-chan []byte, error) {
	sub := s.rdb.Subscribe(ctx, config.CacheKey.UserEventsChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
