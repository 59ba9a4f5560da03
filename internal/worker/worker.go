// Package worker drains the invite email queue.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/mailer"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/queue"
)

const dequeueTimeout = 5 * time.Second

// JobQueue is the Redis queue the processor drains.
type JobQueue interface {
	Dequeue(ctx context.Context, key string, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, key, dlq string) (bool, error)
}

// DeliveryLog records delivery attempts.
type DeliveryLog interface {
	Create(ctx context.Context, el *models.EmailLog) (*models.EmailLog, error)
}

// EmailProcessor sends queued invite emails and records each attempt.
type EmailProcessor struct {
	queue   JobQueue
	sender  mailer.Sender
	logs    DeliveryLog
	logger  *zap.Logger
	backoff time.Duration
	now     func() time.Time
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(q JobQueue, sender mailer.Sender, logs DeliveryLog, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{queue: q, sender: sender, logs: logs, logger: logger, backoff: queue.RetryBackoff, now: time.Now}
}

// Process sends one email job. The attempt is logged whether or not delivery succeeds.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInviteEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sendErr := p.sender.Send(ctx, mailer.Message{
		To:      payload.RecipientEmail,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
	entry := &models.EmailLog{
		OrganizationID: payload.OrganizationID,
		InviteID:       payload.InviteID,
		EmailType:      models.EmailTypeInvite,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusSent,
	}
	switch {
	case errors.Is(sendErr, mailer.ErrDisabled):
		entry.Status = models.EmailLogStatusSkipped
	case sendErr != nil:
		entry.Status = models.EmailLogStatusFailed
		entry.ErrorMessage = sendErr.Error()
	default:
		sentAt := p.now().UTC()
		entry.SentAt = &sentAt
	}
	if _, err := p.logs.Create(ctx, entry); err != nil {
		p.logger.Warn("record email log failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	switch {
	case entry.Status == models.EmailLogStatusSkipped:
		p.logger.Info("invite email skipped", zap.String("job_id", job.ID), zap.String("organization_id", payload.OrganizationID.String()))
		return nil
	case sendErr != nil:
		return sendErr
	}
	p.logger.Info("invite email sent", zap.String("job_id", job.ID), zap.String("organization_id", payload.OrganizationID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	p.logger.Info("email worker started")
	for {
		if ctx.Err() != nil {
			p.logger.Info("email worker stopping")
			return
		}
		job, err := p.queue.Dequeue(ctx, queue.QueueEmails, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p.handle(ctx, job)
	}
}

func (p *EmailProcessor) handle(ctx context.Context, job *queue.Job) {
	p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	err := p.Process(ctx, job)
	if err == nil {
		return
	}
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt+1), zap.Error(err))
	dead, reErr := p.queue.Retry(ctx, job, queue.QueueEmails, queue.QueueEmailsDLQ)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.String("job_id", job.ID), zap.Error(reErr))
	}
	if !dead {
		p.sleep(ctx)
	}
}

func (p *EmailProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
