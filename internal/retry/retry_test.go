package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	var retried []int
	err := Do(context.Background(), Config{MaxRetries: 3, InitialBackoff: time.Millisecond},
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		},
		func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
	)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ZeroRetriesRunsOnce(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), Config{}, func(context.Context) error {
		calls++
		return boom
	}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), Config{MaxRetries: 2, InitialBackoff: time.Millisecond},
		func(context.Context) error {
			calls++
			return errors.New("still failing")
		}, nil)

	assert.EqualError(t, err, "still failing")
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Config{MaxRetries: 5}, func(context.Context) error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDo_ContextDoneDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	boom := errors.New("boom")
	start := time.Now()
	err := Do(ctx, Config{MaxRetries: 5, InitialBackoff: time.Second, MaxBackoff: time.Second},
		func(context.Context) error { return boom }, nil)

	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	for attempt := 0; attempt < 10; attempt++ {
		b := CalculateBackoff(attempt, 10*time.Millisecond, 200*time.Millisecond, 0.5)
		base := 10 * time.Millisecond << attempt
		if base > 200*time.Millisecond {
			base = 200 * time.Millisecond
		}
		assert.GreaterOrEqual(t, b, base)
		assert.LessOrEqual(t, b, 200*time.Millisecond)
	}
}
