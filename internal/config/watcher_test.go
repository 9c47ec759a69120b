package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/edgegate/internal/observability"
)

const validConfigYAML = `
routing:
  defaultPolicy: deny
compliance:
  operationKeywords: [charge]
`

const invalidConfigYAML = `
routing:
  defaultPolicy: sometimes
`

func TestNewWatcher(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "edgegate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0o644))

	w, err := NewWatcher(configPath, func(*Config) {},
		WithDebounceDelay(10*time.Millisecond),
		WithLogger(observability.NopLogger()),
		WithErrorCallback(func(error) {}),
	)
	require.NoError(t, err)

	assert.Equal(t, configPath, w.path)
	assert.Equal(t, 10*time.Millisecond, w.debounceDelay)
	assert.NotNil(t, w.errorCallback)
	assert.NoError(t, w.watcher.Close())
}

func TestWatcher_StartRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "edgegate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(invalidConfigYAML), 0o644))

	w, err := NewWatcher(configPath, nil)
	require.NoError(t, err)
	defer func() { _ = w.watcher.Close() }()

	err = w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routing.defaultPolicy")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "edgegate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0o644))

	reloaded := make(chan *Config, 8)
	w, err := NewWatcher(configPath, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, WithDebounceDelay(200*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	assert.Equal(t, []string{"charge"}, w.GetLastConfig().Compliance.OperationKeywords)

	updated := "compliance:\n  operationKeywords: [charge, payout]\n"
	require.NoError(t, os.WriteFile(configPath, []byte(updated), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if len(cfg.Compliance.OperationKeywords) == 2 {
				assert.Equal(t, []string{"charge", "payout"}, cfg.Compliance.OperationKeywords)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}
}

func TestWatcher_KeepsPreviousConfigOnInvalidReload(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "edgegate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0o644))

	var errCount atomic.Int32
	errSeen := make(chan struct{}, 1)
	w, err := NewWatcher(configPath, nil,
		WithDebounceDelay(200*time.Millisecond),
		WithErrorCallback(func(error) {
			errCount.Add(1)
			select {
			case errSeen <- struct{}{}:
			default:
			}
		}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.NoError(t, os.WriteFile(configPath, []byte(invalidConfigYAML), 0o644))

	select {
	case <-errSeen:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}

	assert.Equal(t, PolicyDeny, w.GetLastConfig().Routing.DefaultPolicy)
	assert.GreaterOrEqual(t, errCount.Load(), int32(1))
}

func TestWatcher_StopIdempotent(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "edgegate.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(validConfigYAML), 0o644))

	w, err := NewWatcher(configPath, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
