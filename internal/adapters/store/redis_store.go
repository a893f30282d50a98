package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps every key as a Redis set
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{
		client: client,
		prefix: opts.KeyPrefix,
		logger: logger,
	}, nil
}

// Get returns the members of the set stored under key
func (s *RedisStore) Get(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.prefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis set: %w", err)
	}
	return members, nil
}

// Set atomically replaces the set stored under key
func (s *RedisStore) Set(ctx context.Context, key string, values []string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.prefix+key)
		if len(values) > 0 {
			members := make([]interface{}, len(values))
			for i, v := range values {
				members[i] = v
			}
			pipe.SAdd(ctx, s.prefix+key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write Redis set: %w", err)
	}
	s.logger.Debug("Updated store entry", zap.String("key", key), zap.Int("count", len(values)))
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	return nil
}
