// Package queue provides the Redis-backed enrichment trigger queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"ContentEnricher/internal/ports"
)

const (
	defaultConnectionTimeout = 2 * time.Second
	defaultPrefix            = "enricher"
)

// Config holds connection settings for the queue.
type Config struct {
	Addr     string
	Password string `json:"-"`
	DB       int
	Prefix   string
}

// RedisQueue is a FIFO list of content ids. An id already waiting in the
// queue is not pushed twice.
type RedisQueue struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ ports.EnrichmentQueue = (*RedisQueue)(nil)

// NewRedisQueue connects and pings Redis.
func NewRedisQueue(cfg Config, log *slog.Logger) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisQueueFromClient(client, cfg.Prefix, log), nil
}

// NewRedisQueueFromClient wraps an existing client.
func NewRedisQueueFromClient(client *redis.Client, prefix string, log *slog.Logger) *RedisQueue {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RedisQueue{client: client, prefix: prefix, logger: log}
}

func (q *RedisQueue) listKey() string    { return q.prefix + ":enrich:queue" }
func (q *RedisQueue) pendingKey() string { return q.prefix + ":enrich:pending" }

// Enqueue pushes id unless it is already waiting.
func (q *RedisQueue) Enqueue(ctx context.Context, contentID string) error {
	added, err := q.client.SAdd(ctx, q.pendingKey(), contentID).Result()
	if err != nil {
		return fmt.Errorf("mark pending: %w", err)
	}
	if added == 0 {
		return nil
	}
	if err := q.client.LPush(ctx, q.listKey(), contentID).Err(); err != nil {
		_ = q.client.SRem(ctx, q.pendingKey(), contentID).Err()
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// Dequeue blocks up to wait and returns "" when nothing arrived. Once an id is
// popped it is always returned; a failure to clear its pending marker is only
// logged, since the id would otherwise be lost until the next stale sweep.
func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (string, error) {
	res, err := q.client.BRPop(ctx, wait, q.listKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("pop: %w", err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("pop: unexpected reply %v", res)
	}

	id := res[1]
	if err := q.client.SRem(ctx, q.pendingKey(), id).Err(); err != nil {
		q.logger.Warn("clear pending marker failed", "content_id", id, "error", err)
	}
	return id, nil
}

// Len reports how many ids are waiting.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.listKey()).Result()
}

// Ping checks connectivity.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
