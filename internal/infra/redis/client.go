// Package redis provides the optional cross-process submit guard. With a
// single bot process the in-memory locker suffices; Redis closes the
// duplicate-submission window when multiple bot replicas share one storage.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Client wraps Redis operations for submission locking.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies connectivity.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func submitKey(userID int64) string {
	return fmt.Sprintf("submit_lock:%d", userID)
}

// AcquireSubmitLock takes the per-user submission lock. The TTL bounds how
// long a crashed handler can wedge a user.
func (c *Client) AcquireSubmitLock(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, submitKey(userID), "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseSubmitLock releases the per-user submission lock.
func (c *Client) ReleaseSubmitLock(ctx context.Context, userID int64) error {
	return c.rdb.Del(ctx, submitKey(userID)).Err()
}

// SubmitLocker adapts the client to the orchestrator's Locker interface
// with a fixed TTL.
type SubmitLocker struct {
	Client *Client
	TTL    time.Duration
}

func (l *SubmitLocker) Acquire(ctx context.Context, userID int64) (bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return l.Client.AcquireSubmitLock(ctx, userID, ttl)
}

func (l *SubmitLocker) Release(ctx context.Context, userID int64) error {
	return l.Client.ReleaseSubmitLock(ctx, userID)
}
