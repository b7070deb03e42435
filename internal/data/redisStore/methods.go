package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// ListPushCapped prepends value, keeps the newest keep entries and refreshes the ttl, in one transaction.
func (s *Store) ListPushCapped(ctx context.Context, key string, value interface{}, keep int64, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.LTrim(ctx, key, 0, keep-1)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// ListHead returns up to n entries from the front of the list.
func (s *Store) ListHead(ctx context.Context, key string, n int64) ([]string, error) {
	if n < 1 {
		return []string{}, nil
	}
	return s.client.LRange(ctx, key, 0, n-1).Result()
}
