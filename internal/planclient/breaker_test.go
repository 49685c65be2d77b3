package planclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()
	b := NewCircuitBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.Open())
	ok, _ := b.Allow()
	assert.True(t, ok)

	b.RecordFailure()
	assert.True(t, b.Open())
	assert.Equal(t, 3, b.Failures())

	ok, retryIn := b.Allow()
	assert.False(t, ok)
	assert.Greater(t, retryIn, time.Duration(0))
	assert.LessOrEqual(t, retryIn, 30*time.Second)
}

func TestBreakerSuccessResets(t *testing.T) {
	t.Parallel()
	b := NewCircuitBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.Zero(t, b.Failures())

	// The run of failures starts over after a success.
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.Open())
}

func TestBreakerCooldownAllowsProbe(t *testing.T) {
	t.Parallel()
	b := NewCircuitBreaker(1, 30*time.Second)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.RecordFailure()
	ok, _ := b.Allow()
	assert.False(t, ok)

	// Just before the cooldown elapses the breaker still refuses.
	clock = clock.Add(29 * time.Second)
	ok, retryIn := b.Allow()
	assert.False(t, ok)
	assert.Equal(t, time.Second, retryIn)

	// Once the cooldown elapses a single call is let through.
	clock = clock.Add(time.Second)
	ok, _ = b.Allow()
	assert.True(t, ok)

	// A failed probe re-stamps the cooldown window.
	b.RecordFailure()
	ok, _ = b.Allow()
	assert.False(t, ok)

	// A successful probe closes the breaker entirely.
	clock = clock.Add(30 * time.Second)
	b.RecordSuccess()
	ok, _ = b.Allow()
	assert.True(t, ok)
	assert.False(t, b.Open())
}
