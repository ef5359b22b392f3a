package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitscode/internal/common"

	"github.com/redis/go-redis/v9"
)

// SessionRepository tracks tokens revoked before their expiry.
type SessionRepository interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

type redisSessionRepository struct {
	rdb *redis.Client
}

func NewRedisSessionRepository(rdb *redis.Client) SessionRepository {
	return &redisSessionRepository{rdb: rdb}
}

func revokedKey(sessionID string) string {
	return "session:revoked:" + sessionID
}

// Revoke remembers sessionID for ttl, the token's remaining lifetime. Expired
// tokens need no entry.
func (r *redisSessionRepository) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" || ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedKey(sessionID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redisSessionRepository.Revoke: %w: %w", common.ErrPersistence, err)
	}
	return nil
}

func (r *redisSessionRepository) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	err := r.rdb.Get(ctx, revokedKey(sessionID)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("redisSessionRepository.IsRevoked: %w: %w", common.ErrPersistence, err)
	}
}
