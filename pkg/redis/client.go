package redis

import (
	"context"
	"fmt"

	"wisefido-ecg/pkg/config"

	"github.com/go-redis/redis/v8"
)

// Client is the go-redis client type used across the module.
type Client = redis.Client

// NewRedisClient builds a client from cfg without connecting.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect builds a client and verifies it with PING.
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}
