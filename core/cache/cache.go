package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crm-calendar-api/core/config"
	"crm-calendar-api/core/constants"
	"crm-calendar-api/core/logger"
)

// Cache is the shared cache surface used by the modules. The only
// consumer today is the OAuth flow, which stores one-time state nonces.
type Cache interface {
	SetOAuthState(ctx context.Context, nonce string, memberID string) error
	GetOAuthState(ctx context.Context, nonce string) (string, error)
	DeleteOAuthState(ctx context.Context, nonce string) error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Cache:Init:Ping:Error", "error", err, "addr", cfg.Addr)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Cache:Init", "addr", cfg.Addr, "db", cfg.DB)
	return &redisCache{client: client}, nil
}

func (c *redisCache) SetOAuthState(ctx context.Context, nonce string, memberID string) error {
	key := constants.RedisKeyOAuthState + nonce
	return c.client.Set(ctx, key, memberID, constants.OAuthStateTTL).Err()
}

func (c *redisCache) GetOAuthState(ctx context.Context, nonce string) (string, error) {
	key := constants.RedisKeyOAuthState + nonce
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func (c *redisCache) DeleteOAuthState(ctx context.Context, nonce string) error {
	key := constants.RedisKeyOAuthState + nonce
	return c.client.Del(ctx, key).Err()
}
