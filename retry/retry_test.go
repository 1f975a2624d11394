package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	p := &ExponentialBackoff{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, MaxAttempts: 5}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for attempt, d := range want[:4] {
		got, ok := p.NextRetry(attempt)
		require.True(t, ok)
		require.Equal(t, d, got)
	}

	p.MaxAttempts = 10
	got, ok := p.NextRetry(4)
	require.True(t, ok)
	require.Equal(t, time.Second, got)

	_, ok = p.NextRetry(10)
	require.False(t, ok)
}

func TestFixedInterval(t *testing.T) {
	t.Parallel()

	p := &FixedInterval{Interval: time.Millisecond, MaxAttempts: 2}
	d, ok := p.NextRetry(1)
	require.True(t, ok)
	require.Equal(t, time.Millisecond, d)
	_, ok = p.NextRetry(2)
	require.False(t, ok)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), &FixedInterval{Interval: time.Millisecond, MaxAttempts: 5}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestDoGivesUp(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), &FixedInterval{Interval: time.Millisecond, MaxAttempts: 2}, func(ctx context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	calls := 0
	err := Do(context.Background(), &FixedInterval{Interval: time.Millisecond, MaxAttempts: 5}, func(ctx context.Context) error {
		calls++
		return Permanent(boom)
	})
	require.Equal(t, boom, err)
	require.Equal(t, 1, calls)
	require.NoError(t, Permanent(nil))
}

func TestDoHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, &FixedInterval{Interval: time.Hour, MaxAttempts: 5}, func(ctx context.Context) error {
		return errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
}
