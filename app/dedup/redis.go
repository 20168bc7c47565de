package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "dino-relay:sent_items"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisBackend keeps the delivered set in a Redis set. The set is read once
// at startup, so it is not a live ledger shared between running instances.
type RedisBackend struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	b := &RedisBackend{
		client:  client,
		key:     cfg.Key,
		timeout: 5 * time.Second,
	}
	if b.key == "" {
		b.key = DefaultRedisKey
	}

	ctx, cancel := b.context()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", cfg.Addr, "key", b.key)

	return b, nil
}

func (b *RedisBackend) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *RedisBackend) Name() string {
	return "redis"
}

func (b *RedisBackend) Load() ([]string, error) {
	ctx, cancel := b.context()
	defer cancel()

	ids, err := b.client.SMembers(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load set %s: %w", b.key, err)
	}
	return ids, nil
}

func (b *RedisBackend) Add(ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}

	ctx, cancel := b.context()
	defer cancel()

	if err := b.client.SAdd(ctx, b.key, members...).Err(); err != nil {
		return fmt.Errorf("failed to add to set %s: %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Clear() error {
	ctx, cancel := b.context()
	defer cancel()

	if err := b.client.Del(ctx, b.key).Err(); err != nil {
		return fmt.Errorf("failed to delete set %s: %w", b.key, err)
	}
	return nil
}

// Health returns connection information for the stats endpoint.
func (b *RedisBackend) Health() map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	ctx, cancel := b.context()
	defer cancel()

	if err := b.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if count, err := b.client.SCard(ctx, b.key).Result(); err == nil {
		health["sent_items"] = count
	}

	return health
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
