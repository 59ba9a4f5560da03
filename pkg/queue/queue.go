package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "queue:emails"
	// QueueEmailsDLQ holds email jobs that failed MaxRetries times.
	QueueEmailsDLQ = "queue:emails:dlq"
	// MaxRetries is the number of attempts before a job moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const JobTypeInviteEmail JobType = "invite_email"

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	OrganizationID uuid.UUID  `json:"organization_id"`
	InviteID       *uuid.UUID `json:"invite_id,omitempty"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	Body           string     `json:"body"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis lists.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueInviteEmail enqueues an invite email job.
func (q *Queue) EnqueueInviteEmail(ctx context.Context, payload EmailPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeInviteEmail,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.push(ctx, QueueEmails, &job); err != nil {
		return err
	}
	q.logger.Debug("enqueued invite email job", zap.String("job_id", job.ID), zap.String("organization_id", payload.OrganizationID.String()))
	return nil
}

// Dequeue blocks up to timeout for a job on key. It returns nil, nil when the wait times out.
// timeout 0 blocks until a job arrives or ctx is done.
func (q *Queue) Dequeue(ctx context.Context, key string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job on key with an incremented attempt, or moves it to dlq after MaxRetries.
// It reports whether the job was dead-lettered.
func (q *Queue) Retry(ctx context.Context, job *Job, key, dlq string) (bool, error) {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		if err := q.push(ctx, dlq, job); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return false, err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return true, nil
	}
	if err := q.push(ctx, key, job); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}

// Len returns the number of jobs waiting on key.
func (q *Queue) Len(ctx context.Context, key string) (int64, error) {
	return q.client.LLen(ctx, key).Result()
}

func (q *Queue) push(ctx context.Context, key string, job *Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}
