package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Inovico-app/inovy-sub006/internal/classify"
	"github.com/Inovico-app/inovy-sub006/internal/guardrails"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheConfig contains policy cache configuration
type CacheConfig struct {
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// CachedStore is a Redis read-through cache in front of the Postgres store.
// Policy reads are cached; cache failures degrade to the inner store with a
// log line and never surface to callers. Violation inserts pass straight
// through, the audit trail is never cached.
type CachedStore struct {
	inner  *Store
	client *redis.Client
	config *CacheConfig
	logger *zap.Logger
}

// NewCachedStore wraps a store with a Redis policy cache.
func NewCachedStore(inner *Store, config *CacheConfig, logger *zap.Logger) (*CachedStore, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Policy cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Duration("default_ttl", config.DefaultTTL))

	return &CachedStore{
		inner:  inner,
		client: client,
		config: config,
		logger: logger,
	}, nil
}

func (c *CachedStore) policyKey(scope guardrails.Scope, scopeID string) string {
	return fmt.Sprintf("%sguardrails:%s:%s", c.config.KeyPrefix, scope, scopeID)
}

func (c *CachedStore) classificationKey(dataType classify.DataType, organizationID string) string {
	return fmt.Sprintf("%sclassification:%s:%s", c.config.KeyPrefix, dataType, organizationID)
}

// GetPolicy serves the guardrails policy from cache, falling back to the
// inner store and populating the cache on a miss.
func (c *CachedStore) GetPolicy(ctx context.Context, scope guardrails.Scope, scopeID string) (*guardrails.Policy, error) {
	key := c.policyKey(scope, scopeID)

	if data, err := c.client.Get(ctx, key).Result(); err == nil {
		var policy guardrails.Policy
		if err := json.Unmarshal([]byte(data), &policy); err == nil {
			return &policy, nil
		}
		// Corrupted entry, drop it and fall through to the store.
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("policy cache lookup failed", zap.String("key", key), zap.Error(err))
	}

	policy, err := c.inner.GetPolicy(ctx, scope, scopeID)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, policy)
	return policy, nil
}

// GetClassificationPolicy serves classification policies the same way.
func (c *CachedStore) GetClassificationPolicy(ctx context.Context, dataType classify.DataType, organizationID string) (*classify.Policy, error) {
	key := c.classificationKey(dataType, organizationID)

	if data, err := c.client.Get(ctx, key).Result(); err == nil {
		var policy classify.Policy
		if err := json.Unmarshal([]byte(data), &policy); err == nil {
			return &policy, nil
		}
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn("classification cache lookup failed", zap.String("key", key), zap.Error(err))
	}

	policy, err := c.inner.GetClassificationPolicy(ctx, dataType, organizationID)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, policy)
	return policy, nil
}

// UpsertPolicy writes through to the store and invalidates the cached entry.
func (c *CachedStore) UpsertPolicy(ctx context.Context, policy *guardrails.Policy) error {
	if err := c.inner.UpsertPolicy(ctx, policy); err != nil {
		return err
	}
	c.invalidate(ctx, c.policyKey(policy.Scope, policy.ScopeID))
	return nil
}

// UpsertClassificationPolicy writes through and invalidates.
func (c *CachedStore) UpsertClassificationPolicy(ctx context.Context, policy *classify.Policy) error {
	if err := c.inner.UpsertClassificationPolicy(ctx, policy); err != nil {
		return err
	}
	c.invalidate(ctx, c.classificationKey(policy.DataType, policy.OrganizationID))
	return nil
}

// InsertViolation passes through, append-only writes are never cached.
func (c *CachedStore) InsertViolation(ctx context.Context, violation *guardrails.Violation) error {
	return c.inner.InsertViolation(ctx, violation)
}

// ListViolations passes through to the store.
func (c *CachedStore) ListViolations(ctx context.Context, filter ViolationFilter) ([]guardrails.Violation, error) {
	return c.inner.ListViolations(ctx, filter)
}

// Close releases the Redis client and the inner store.
func (c *CachedStore) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Warn("failed to close Redis client", zap.Error(err))
	}
	return c.inner.Close()
}

func (c *CachedStore) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		c.logger.Warn("failed to populate policy cache", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStore) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("failed to invalidate policy cache", zap.String("key", key), zap.Error(err))
	}
}

// maskRedisURL hides credentials in Redis URLs before logging.
func maskRedisURL(url string) string {
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
