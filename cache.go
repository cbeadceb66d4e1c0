package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StatusCache is an optional read-through cache for account status, keyed by
// account id. Get reports whether a cached status exists. Implementations must
// make Invalidate synchronous: once it returns, the next Get misses.
type StatusCache interface {
	Get(ctx context.Context, accountID uuid.UUID) (AccountStatus, bool, error)
	Set(ctx context.Context, accountID uuid.UUID, status AccountStatus) error
	Invalidate(ctx context.Context, accountIDs ...uuid.UUID) error
}

// DefaultStatusTTL bounds staleness for writes that bypass the bulk
// operations, e.g. rows changed directly in the database.
const DefaultStatusTTL = 30 * time.Second

// RedisStatusCache keeps account statuses in redis with a short TTL
type RedisStatusCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger Logger
}

type RedisStatusCacheOption func(*RedisStatusCache)

func WithStatusTTL(ttl time.Duration) RedisStatusCacheOption {
	return func(c *RedisStatusCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithStatusCacheLogger(logger Logger) RedisStatusCacheOption {
	return func(c *RedisStatusCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewRedisStatusCache(client *redis.Client, opts ...RedisStatusCacheOption) *RedisStatusCache {
	c := &RedisStatusCache{
		client: client,
		ttl:    DefaultStatusTTL,
		prefix: "accounts:status:",
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

func (c *RedisStatusCache) key(accountID uuid.UUID) string {
	return c.prefix + accountID.String()
}

func (c *RedisStatusCache) Get(ctx context.Context, accountID uuid.UUID) (AccountStatus, bool, error) {
	val, err := c.client.Get(ctx, c.key(accountID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if !ValidStatus(val) {
		// stale or corrupted entry, drop it
		c.client.Del(ctx, c.key(accountID))
		return "", false, nil
	}

	return AccountStatus(val), true, nil
}

func (c *RedisStatusCache) Set(ctx context.Context, accountID uuid.UUID, status AccountStatus) error {
	return c.client.Set(ctx, c.key(accountID), string(status), c.ttl).Err()
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) error {
	if len(accountIDs) == 0 {
		return nil
	}

	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = c.key(id)
	}

	return c.client.Del(ctx, keys...).Err()
}

var _ StatusCache = (*RedisStatusCache)(nil)
