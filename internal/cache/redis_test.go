package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
	"github.com/vyrodovalexey/edgegate/internal/secrets"
)

// setupMiniRedis creates a miniredis server for testing.
func setupMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return mr
}

func newTestRedisCache(t *testing.T, mr *miniredis.Miniredis) Cache {
	t.Helper()

	c, err := New(&config.CacheConfig{
		Type:  config.CacheTypeRedis,
		Redis: &config.RedisConfig{URL: "redis://" + mr.Addr()},
	}, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisCache_GetSetDelete(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("edgegate:k"))
	assert.Equal(t, time.Minute, mr.TTL("edgegate:k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_SetNX(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr)
	ctx := context.Background()

	stored, err := c.SetNX(ctx, "k", []byte("first"), time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, time.Minute, mr.TTL("edgegate:k"))

	stored, err = c.SetNX(ctx, "k", []byte("second"), time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	raw, err := mr.Get("edgegate:k")
	require.NoError(t, err)
	assert.Equal(t, "first", raw)
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30*time.Second))
	mr.FastForward(31 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_KeysAndDeletePrefix(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr)
	ctx := context.Background()

	for _, k := range []string{"compliance_block_3", "compliance_block_1", "compliance_block_2", "tenant:x"} {
		require.NoError(t, c.Set(ctx, k, []byte("{}"), 0))
	}
	// Keys outside the namespace are ignored.
	require.NoError(t, mr.Set("other:compliance_block_9", "x"))

	keys, err := c.Keys(ctx, "compliance_block_", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"compliance_block_1", "compliance_block_2", "compliance_block_3"}, keys)

	keys, err = c.Keys(ctx, "compliance_block_", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"compliance_block_1"}, keys)

	n, err := c.DeletePrefix(ctx, "compliance_block_")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, mr.Exists("edgegate:tenant:x"))
	assert.True(t, mr.Exists("other:compliance_block_9"))

	n, err = c.DeletePrefix(ctx, "nothing_")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisCache_ConnectionFailed(t *testing.T) {
	t.Parallel()

	_, err := New(&config.CacheConfig{
		Type:  config.CacheTypeRedis,
		Redis: &config.RedisConfig{URL: "redis://127.0.0.1:1", DialTimeout: config.Duration(100 * time.Millisecond)},
	}, nil)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestRedisCache_ServerError(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	c := newTestRedisCache(t, mr)

	mr.SetError("ERR backend unavailable")
	defer mr.SetError("")

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_PasswordFromVault(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)
	mr.RequireAuth("from-vault")

	vault := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/kv/data/redis" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{"password": "from-vault"},
			},
		})
	}))
	defer vault.Close()

	provider, err := secrets.NewVaultProvider(&config.VaultConfig{
		Enabled: true,
		Address: vault.URL,
		Token:   "t",
	}, nil)
	require.NoError(t, err)

	c, err := New(&config.CacheConfig{
		Type: config.CacheTypeRedis,
		Redis: &config.RedisConfig{
			URL:               "redis://" + mr.Addr(),
			PasswordVaultPath: "kv/redis",
		},
	}, nil, WithSecrets(provider))
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
}

func TestRedisCache_PasswordWithoutProvider(t *testing.T) {
	t.Parallel()

	mr := setupMiniRedis(t)

	_, err := New(&config.CacheConfig{
		Type: config.CacheTypeRedis,
		Redis: &config.RedisConfig{
			URL:               "redis://" + mr.Addr(),
			PasswordVaultPath: "kv/redis",
		},
	}, nil)
	assert.ErrorIs(t, err, secrets.ErrProviderNotConfigured)
}

func TestApplyPasswordToRedisURL(t *testing.T) {
	t.Parallel()

	got, err := applyPasswordToRedisURL("redis://user@localhost:6379/0", "pw")
	require.NoError(t, err)
	assert.Equal(t, "redis://user:pw@localhost:6379/0", got)

	got, err = applyPasswordToRedisURL("redis://localhost:6379", "pw")
	require.NoError(t, err)
	assert.Equal(t, "redis://:pw@localhost:6379", got)
}

func TestEscapeGlob(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a\*b\?c\[d\]`, escapeGlob("a*b?c[d]"))
	assert.Equal(t, "plain_prefix", escapeGlob("plain_prefix"))
}
