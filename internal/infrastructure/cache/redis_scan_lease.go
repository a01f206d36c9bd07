package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// DefaultScanLeaseKey is the key holding the current scan holder
const DefaultScanLeaseKey = "sharepoint:scan:lease"

// releaseScript deletes the key only when it still holds the caller's value
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisScanLease implements sharepoint.ScanLease using Redis.
// Use it when several instances share one Redis but the lease should not touch the database.
type RedisScanLease struct {
	client *redis.Client
	key    string
}

// NewRedisScanLease connects to Redis and verifies the connection
func NewRedisScanLease(cfg config.RedisConfig) (*RedisScanLease, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisScanLeaseWithClient(client, ""), nil
}

// NewRedisScanLeaseWithClient creates a lease on an existing client
func NewRedisScanLeaseWithClient(client *redis.Client, key string) *RedisScanLease {
	if key == "" {
		key = DefaultScanLeaseKey
	}
	return &RedisScanLease{client: client, key: key}
}

// Acquire uses SET NX with the TTL, so an abandoned lease expires on its own.
func (l *RedisScanLease) Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire scan lease: %w", err)
	}
	return ok, nil
}

// Release deletes the key if holder still owns it
func (l *RedisScanLease) Release(ctx context.Context, holder string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, holder).Err(); err != nil {
		return fmt.Errorf("failed to release scan lease: %w", err)
	}
	return nil
}

// currentHolder returns the current holder, or "" when the lease is free
func (l *RedisScanLease) currentHolder(ctx context.Context) (string, error) {
	holder, err := l.client.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read scan lease: %w", err)
	}
	return holder, nil
}

// Close closes the Redis client
func (l *RedisScanLease) Close() error {
	return l.client.Close()
}

// Ensure RedisScanLease implements ScanLease
var _ sharepoint.ScanLease = (*RedisScanLease)(nil)
