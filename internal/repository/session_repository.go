package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-escalation-api/pkg/cache"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

// SessionRepository keeps per-session inactivity streaks in Redis.
type SessionRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionRepository constructs the repository. A nil client disables the store.
func NewSessionRepository(client redis.UniversalClient, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionRepository{client: client, ttl: ttl}
}

func streakKey(studentID, sessionID string) string {
	return cache.Key("inactivity", studentID, sessionID)
}

// Enabled reports whether a Redis client is configured.
func (r *SessionRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// IncrementStreak bumps the consecutive-inactive counter and refreshes its TTL.
func (r *SessionRepository) IncrementStreak(ctx context.Context, studentID, sessionID string) (int, error) {
	if !r.Enabled() {
		return 0, appErrors.ErrCacheMiss
	}
	key := streakKey(studentID, sessionID)
	var incr *redis.IntCmd
	if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return int(incr.Val()), nil
}

// Streak returns the current counter, zero when absent.
func (r *SessionRepository) Streak(ctx context.Context, studentID, sessionID string) (int, error) {
	if !r.Enabled() {
		return 0, appErrors.ErrCacheMiss
	}
	key := streakKey(studentID, sessionID)
	n, err := r.client.Get(ctx, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return n, nil
}

// ResetStreak sets the counter back to zero while keeping the session alive.
func (r *SessionRepository) ResetStreak(ctx context.Context, studentID, sessionID string) error {
	if !r.Enabled() {
		return nil
	}
	key := streakKey(studentID, sessionID)
	if err := r.client.Set(ctx, key, 0, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
