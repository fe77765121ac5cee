package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// RedisSubmissionStore reserves Idempotency-Key submissions with SET NX.
type RedisSubmissionStore struct {
	rdb redis.Cmdable
}

var _ middleware.SubmissionStore = (*RedisSubmissionStore)(nil)

func NewRedisSubmissionStore(rdb redis.Cmdable) *RedisSubmissionStore {
	return &RedisSubmissionStore{rdb: rdb}
}

// ConnectRedis opens a client and checks it answers.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (s *RedisSubmissionStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve submission key: %w", err)
	}
	return ok, nil
}

func (s *RedisSubmissionStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release submission key: %w", err)
	}
	return nil
}

// UnavailableSubmissionStore refuses every reservation; the guard then answers 503.
type UnavailableSubmissionStore struct{}

var _ middleware.SubmissionStore = UnavailableSubmissionStore{}

func (UnavailableSubmissionStore) Reserve(context.Context, string, time.Duration) (bool, error) {
	return false, fmt.Errorf("submission store is not configured")
}

func (UnavailableSubmissionStore) Release(context.Context, string) error {
	return nil
}
