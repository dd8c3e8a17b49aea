package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps session fields under prefix:sid:authToken and
// prefix:sid:authUser.
type RedisStorage struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis-backed Storage. A zero ttl keeps the
// fields until they are cleared.
func NewRedisStorage(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	return &RedisStorage{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStorage) key(sid, field string) string {
	if r.prefix == "" {
		return sid + ":" + field
	}
	return r.prefix + ":" + sid + ":" + field
}

func (r *RedisStorage) Load(ctx context.Context, sid string) (string, string, error) {
	vals, err := r.rdb.MGet(ctx, r.key(sid, TokenKey), r.key(sid, UserKey)).Result()
	if err != nil {
		return "", "", fmt.Errorf("load session %s: %w", sid, err)
	}
	return asString(vals[0]), asString(vals[1]), nil
}

// Save writes both fields in one MULTI/EXEC.
func (r *RedisStorage) Save(ctx context.Context, sid, token, user string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(sid, TokenKey), token, r.ttl)
		pipe.Set(ctx, r.key(sid, UserKey), user, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", sid, err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context, sid string) error {
	err := r.rdb.Del(ctx, r.key(sid, TokenKey), r.key(sid, UserKey)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clear session %s: %w", sid, err)
	}
	return nil
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
