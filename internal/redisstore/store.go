// Package redisstore provides Redis-backed deduplication of Telegram
// updates, so a redelivered update is handled at most once across restarts.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: 24 * time.Hour,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.rdb.Close() }

// MarkUpdateSeen records the update id and reports whether this call was the
// first to see it. On a Redis error it returns first=true so that a broken
// dedupe layer degrades to at-least-once rather than dropping updates.
func (s *Store) MarkUpdateSeen(ctx context.Context, updateID int) (bool, error) {
	key := fmt.Sprintf("tg:update:%d", updateID)
	ok, err := s.rdb.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}
