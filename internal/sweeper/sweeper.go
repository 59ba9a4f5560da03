// Package sweeper periodically expires overdue tasks.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/tasks"
)

// DefaultInterval is the production sweep period.
const DefaultInterval = time.Hour

const lockKey = "lock:sweeper:expire-tasks"

// Expirer bulk-expires overdue tasks.
type Expirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) ([]tasks.ExpiredTask, error)
}

// Locker guards a sweep when several instances run the sweeper.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, func(context.Context), error)
}

// Publisher announces expired tasks to an organization.
type Publisher interface {
	PublishOrgEvent(orgID uuid.UUID, event string, payload any)
}

// Sweeper owns the recurring expiry pass.
type Sweeper struct {
	store    Expirer
	interval time.Duration
	locker   Locker
	events   Publisher
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithLocker makes every sweep take an advisory lock first; a sweep that loses is skipped.
func WithLocker(l Locker) Option {
	return func(s *Sweeper) { s.locker = l }
}

// WithPublisher publishes tasks.expired per affected organization.
func WithPublisher(p Publisher) Option {
	return func(s *Sweeper) { s.events = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// New creates a sweeper. A non-positive interval falls back to DefaultInterval.
func New(store Expirer, interval time.Duration, logger *zap.Logger, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{store: store, interval: interval, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one sweep immediately, then one per interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one sweep. Errors and panics are logged and never stop the loop.
func (s *Sweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweeper panic", zap.Any("panic", r))
		}
	}()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
	}
}

// RunOnce expires every Todo or In Progress task whose due date has passed and
// returns how many changed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		ok, release, err := s.locker.TryLock(ctx, lockKey, s.interval)
		if err != nil {
			return 0, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			s.logger.Debug("sweep skipped, lock held elsewhere")
			return 0, nil
		}
		defer release(context.WithoutCancel(ctx))
	}

	expired, err := s.store.ExpireOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire overdue tasks: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}
	s.logger.Info("expired overdue tasks", zap.Int("count", len(expired)))
	s.publish(expired)
	return len(expired), nil
}

func (s *Sweeper) publish(expired []tasks.ExpiredTask) {
	if s.events == nil {
		return
	}
	byOrg := make(map[uuid.UUID][]uuid.UUID)
	for _, e := range expired {
		byOrg[e.OrganizationID] = append(byOrg[e.OrganizationID], e.ID)
	}
	for orgID, ids := range byOrg {
		s.events.PublishOrgEvent(orgID, tasks.EventExpired, map[string]any{"taskIds": ids, "count": len(ids)})
	}
}
