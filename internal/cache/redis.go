package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/secrets"
)

// defaultKeyPrefix namespaces every key this gateway writes to redis.
const defaultKeyPrefix = "edgegate:"

// scanBatch is the COUNT hint for SCAN iterations.
const scanBatch = 256

// redisCache implements Cache on top of redis.
type redisCache struct {
	logger    observability.Logger
	client    *redis.Client
	keyPrefix string

	hits   int64
	misses int64
}

func newRedisCache(cfg *config.CacheConfig, logger observability.Logger, o *options) (*redisCache, error) {
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		return nil, fmt.Errorf("%w: redis url is required", ErrInvalidConfig)
	}

	redisURL := cfg.Redis.URL
	if cfg.Redis.PasswordVaultPath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pw, err := secrets.ReadString(ctx, o.secrets, cfg.Redis.PasswordVaultPath, "password")
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve redis password: %w", err)
		}
		redisURL, err = applyPasswordToRedisURL(redisURL, pw)
		if err != nil {
			return nil, err
		}
		logger.Info("redis password resolved from vault",
			observability.String("vaultPath", cfg.Redis.PasswordVaultPath))
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrInvalidConfig, err)
	}
	applyRedisPoolOptions(opts, cfg.Redis)

	client := redis.NewClient(opts)
	if err := pingRedis(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	prefix := cfg.Redis.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	logger.Info("redis cache initialized",
		observability.String("addr", opts.Addr),
		observability.String("keyPrefix", prefix))

	return &redisCache{
		logger:    logger,
		client:    client,
		keyPrefix: prefix,
	}, nil
}

// applyPasswordToRedisURL sets the password in the URL's userinfo,
// keeping any username.
func applyPasswordToRedisURL(raw, password string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse redis URL: %w", err)
	}
	var username string
	if parsed.User != nil {
		username = parsed.User.Username()
	}
	parsed.User = url.UserPassword(username, password)
	return parsed.String(), nil
}

func applyRedisPoolOptions(opts *redis.Options, cfg *config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}
}

func pingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (c *redisCache) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return otel.Tracer(cacheTracerName).Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", "redis"),
			attribute.String("cache.key", key),
		),
	)
}

func (c *redisCache) fail(span trace.Span, op, key string, err error) error {
	GetCacheMetrics().errorsTotal.WithLabelValues("redis", op).Inc()
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	c.logger.Error("redis "+op+" failed",
		observability.String("key", key),
		observability.Error(err))
	return err
}

// Get retrieves a value from redis.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.startSpan(ctx, "Get", key)
	defer span.End()
	defer observeOperation("redis", "get", time.Now())

	val, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	switch {
	case err == nil:
		atomic.AddInt64(&c.hits, 1)
		GetCacheMetrics().hitsTotal.WithLabelValues("redis").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return val, nil
	case errors.Is(err, redis.Nil):
		atomic.AddInt64(&c.misses, 1)
		GetCacheMetrics().missesTotal.WithLabelValues("redis").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	default:
		return nil, c.fail(span, "get", key, err)
	}
}

// Set stores a value in redis. A TTL of 0 stores without expiry.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := c.startSpan(ctx, "Set", key)
	defer span.End()
	defer observeOperation("redis", "set", time.Now())

	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		return c.fail(span, "set", key, err)
	}
	return nil
}

// SetNX stores a value in redis unless the key already exists.
func (c *redisCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ctx, span := c.startSpan(ctx, "SetNX", key)
	defer span.End()
	defer observeOperation("redis", "setnx", time.Now())

	stored, err := c.client.SetNX(ctx, c.keyPrefix+key, value, ttl).Result()
	if err != nil {
		return false, c.fail(span, "setnx", key, err)
	}
	return stored, nil
}

// Delete removes a key from redis.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	ctx, span := c.startSpan(ctx, "Delete", key)
	defer span.End()
	defer observeOperation("redis", "delete", time.Now())

	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return c.fail(span, "delete", key, err)
	}
	return nil
}

// Exists checks if a key exists in redis.
func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := c.startSpan(ctx, "Exists", key)
	defer span.End()
	defer observeOperation("redis", "exists", time.Now())

	n, err := c.client.Exists(ctx, c.keyPrefix+key).Result()
	if err != nil {
		return false, c.fail(span, "exists", key, err)
	}
	return n > 0, nil
}

// Keys scans for keys with the given prefix. SCAN is used instead of KEYS
// so large audit logs do not block the server.
func (c *redisCache) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	ctx, span := c.startSpan(ctx, "Keys", prefix)
	defer span.End()
	defer observeOperation("redis", "keys", time.Now())

	keys, err := c.scan(ctx, prefix)
	if err != nil {
		return nil, c.fail(span, "keys", prefix, err)
	}

	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

// DeletePrefix deletes every key with the given prefix.
func (c *redisCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	ctx, span := c.startSpan(ctx, "DeletePrefix", prefix)
	defer span.End()
	defer observeOperation("redis", "delete", time.Now())

	keys, err := c.scan(ctx, prefix)
	if err != nil {
		return 0, c.fail(span, "delete", prefix, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.keyPrefix + k
	}
	n, err := c.client.Del(ctx, full...).Result()
	if err != nil {
		return 0, c.fail(span, "delete", prefix, err)
	}
	return int(n), nil
}

// scan returns matching keys with the namespace prefix stripped. SCAN may
// return a key more than once.
func (c *redisCache) scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})
	iter := c.client.Scan(ctx, 0, escapeGlob(c.keyPrefix+prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), c.keyPrefix)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// escapeGlob escapes redis glob metacharacters in a literal prefix.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Close closes the redis connection.
func (c *redisCache) Close() error {
	return c.client.Close()
}

// Stats returns cache statistics.
func (c *redisCache) Stats() CacheStats {
	return CacheStats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}
