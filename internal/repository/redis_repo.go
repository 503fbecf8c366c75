package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepo stores the session record as a Redis hash under a single key.
type RedisRepo struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisRepo creates a repository on an existing client. ttl <= 0 keeps the record until cleared.
func NewRedisRepo(client *redis.Client, key string, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, key: key, ttl: ttl}
}

// Load returns all fields of the hash. A missing key is an empty record.
func (r *RedisRepo) Load(ctx context.Context) (map[string]string, error) {
	record, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load session %s: %w", r.key, err)
	}
	return record, nil
}

// Save replaces the hash inside MULTI/EXEC so no reader sees a partial record.
func (r *RedisRepo) Save(ctx context.Context, record map[string]string) error {
	values := make(map[string]any, len(record))
	for k, v := range record {
		values[k] = v
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		if len(values) > 0 {
			pipe.HSet(ctx, r.key, values)
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session %s: %w", r.key, err)
	}
	return nil
}

// Clear deletes the hash.
func (r *RedisRepo) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis clear session %s: %w", r.key, err)
	}
	return nil
}
