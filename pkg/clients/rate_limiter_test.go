package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketAllow(t *testing.T) {
	rl := NewTokenBucketRateLimiter(1, 2)

	// Burst capacity is available immediately
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())

	// Bucket drained
	assert.False(t, rl.Allow())
}

func TestTokenBucketRefill(t *testing.T) {
	rl := NewTokenBucketRateLimiter(100, 1)

	require.True(t, rl.Allow())
	require.False(t, rl.Allow())

	// 100 tokens/sec refills one within ~10ms
	time.Sleep(20 * time.Millisecond)
	assert.True(t, rl.Allow())
}

func TestTokenBucketWait(t *testing.T) {
	rl := NewTokenBucketRateLimiter(50, 1)

	require.True(t, rl.Allow())

	start := time.Now()
	require.NoError(t, rl.Wait(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	rl := NewTokenBucketRateLimiter(0.001, 1)

	require.True(t, rl.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucketMinimumBurst(t *testing.T) {
	rl := NewTokenBucketRateLimiter(1, 0)
	assert.True(t, rl.Allow())
}
