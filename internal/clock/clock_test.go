package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealSleep(t *testing.T) {
	t.Run("returns after the duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, New().Sleep(context.Background(), 5*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, New().Sleep(ctx, time.Hour), context.Canceled)
	})
}

func TestFake(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f := NewFake(start)

	require.NoError(t, f.Sleep(context.Background(), time.Second))
	require.NoError(t, f.Sleep(context.Background(), 1500*time.Millisecond))
	f.Advance(time.Minute)

	assert.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond}, f.Sleeps())
	assert.Equal(t, time.Minute+2500*time.Millisecond, f.Elapsed(start))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.Sleep(ctx, time.Second), context.Canceled)
	assert.Len(t, f.Sleeps(), 2)
}
