package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/formaplan/trainer-booking/pkg/errors"
)

type guardStore interface {
	Acquire(ctx context.Context, taskID, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, taskID, token string) error
}

type localHold struct {
	token   string
	expires time.Time
}

// BookingGuard rejects a second booking for a task while one is in flight.
// Holds live in Redis when a store is configured and in process memory otherwise
// or when Redis is unreachable.
type BookingGuard struct {
	store  guardStore
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]localHold
	now   func() time.Time
}

// NewBookingGuard constructs a guard. store may be nil.
func NewBookingGuard(store guardStore, ttl time.Duration, logger *zap.Logger) *BookingGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingGuard{store: store, ttl: ttl, logger: logger, local: make(map[string]localHold), now: time.Now}
}

// Acquire takes the hold for the task. The returned func releases it and is safe to call once.
func (g *BookingGuard) Acquire(ctx context.Context, taskID string) (func(), error) {
	token := uuid.NewString()
	if g.store != nil {
		ok, err := g.store.Acquire(ctx, taskID, token, g.ttl)
		if err == nil {
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrBookingInProgress, "")
			}
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := g.store.Release(releaseCtx, taskID, token); err != nil {
					g.logger.Warn("release booking guard failed", zap.String("task_id", taskID), zap.Error(err))
				}
			}, nil
		}
		g.logger.Warn("booking guard store unavailable, using local guard", zap.String("task_id", taskID), zap.Error(err))
	}
	return g.acquireLocal(taskID, token)
}

func (g *BookingGuard) acquireLocal(taskID, token string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if hold, ok := g.local[taskID]; ok && now.Before(hold.expires) {
		return nil, appErrors.Clone(appErrors.ErrBookingInProgress, "")
	}
	g.local[taskID] = localHold{token: token, expires: now.Add(g.ttl)}
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if hold, ok := g.local[taskID]; ok && hold.token == token {
			delete(g.local, taskID)
		}
	}, nil
}
