package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-graphdb/neobolt/neoerr"
)

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, time.Second, p.InitialDelay)
	assert.Equal(t, 30*time.Second, p.MaxDelay)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 0.2, p.Jitter)
}

func TestJitterStaysWithinBounds(t *testing.T) {
	d := 10 * time.Second
	for i := 0; i < 50; i++ {
		j := jitter(d, 0.2)
		assert.GreaterOrEqual(t, j, d, "jitter must never shrink the delay below the base")
		assert.LessOrEqual(t, j, 12*time.Second)
	}
}

func TestBackoffCapsAtMaxDelay(t *testing.T) {
	restore := swapSleep(func(context.Context, time.Duration) error { return nil })
	defer restore()

	policy := RetryPolicy{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2, Jitter: 0}.withDefaults()
	delay := policy.InitialDelay
	require.NoError(t, backoff(context.Background(), &delay, policy))
	assert.Equal(t, 2*time.Second, delay)
	require.NoError(t, backoff(context.Background(), &delay, policy))
	assert.Equal(t, 3*time.Second, delay, "should cap at MaxDelay instead of growing to 4s")
}

func TestExceedsDeadline(t *testing.T) {
	start := time.Now().Add(-28500 * time.Millisecond)
	assert.False(t, exceedsDeadline(start, time.Second, 30*time.Second))
	assert.True(t, exceedsDeadline(start, 2*time.Second, 30*time.Second))
}

func swapSleep(fn func(context.Context, time.Duration) error) func() {
	orig := sleep
	sleep = fn
	return func() { sleep = orig }
}

func TestRetriablePredicateDrivesManagedRetryDecision(t *testing.T) {
	retriable := neoerr.ServerError("Neo.TransientError.Transaction.DeadlockDetected", "deadlock")
	fatal := neoerr.ServerError("Neo.ClientError.Statement.SyntaxError", "bad syntax")
	assert.True(t, neoerr.Retriable(retriable))
	assert.False(t, neoerr.Retriable(fatal))
}
