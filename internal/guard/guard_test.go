package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 9, 14, 8, 0, 0, 0, time.UTC)}
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := rl.Check(ctx, "10.0.0.1")
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	c := newClock()
	rl := NewRateLimiter(2, time.Minute)
	rl.now = c.now
	ctx := context.Background()

	rl.Check(ctx, "10.0.0.1")
	c.advance(20 * time.Second)
	rl.Check(ctx, "10.0.0.1")
	result := rl.Check(ctx, "10.0.0.1")

	assert.False(t, result.Allowed)
	assert.Equal(t, "rate_limiter", result.Guard)
	assert.Equal(t, 40*time.Second, result.RetryAfter)
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	c := newClock()
	rl := NewRateLimiter(1, time.Minute)
	rl.now = c.now
	ctx := context.Background()

	assert.True(t, rl.Check(ctx, "k").Allowed)
	assert.False(t, rl.Check(ctx, "k").Allowed)
	c.advance(time.Minute + time.Second)
	assert.True(t, rl.Check(ctx, "k").Allowed)
}

func TestRateLimiter_SeparateKeys(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx := context.Background()

	assert.True(t, rl.Check(ctx, "key-a").Allowed)
	assert.True(t, rl.Check(ctx, "key-b").Allowed)
}

func TestCircuitBreaker_ClosedByDefault(t *testing.T) {
	cb := NewCircuitBreaker(3, 5*time.Second)
	assert.True(t, cb.Check(context.Background(), "chat").Allowed)
	assert.Equal(t, CircuitClosed, cb.State("chat"))
}

func TestCircuitBreaker_OpensOnThreshold(t *testing.T) {
	cb := NewCircuitBreaker(2, 5*time.Second)
	ctx := context.Background()

	cb.RecordFailure("chat")
	assert.True(t, cb.Check(ctx, "chat").Allowed)
	cb.RecordFailure("chat")

	result := cb.Check(ctx, "chat")
	assert.False(t, result.Allowed)
	assert.Equal(t, "circuit_breaker", result.Guard)
	assert.Equal(t, CircuitOpen, cb.State("chat"))
	assert.True(t, cb.Check(ctx, "email").Allowed, "keys are independent")
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(2, 5*time.Second)

	cb.RecordFailure("chat")
	cb.RecordSuccess("chat")
	cb.RecordFailure("chat")
	assert.Equal(t, CircuitClosed, cb.State("chat"))
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	c := newClock()
	cb := NewCircuitBreaker(1, 5*time.Second)
	cb.now = c.now
	ctx := context.Background()

	cb.RecordFailure("chat")
	assert.False(t, cb.Check(ctx, "chat").Allowed)

	c.advance(6 * time.Second)
	assert.True(t, cb.Check(ctx, "chat").Allowed, "one probe after the reset timeout")
	assert.Equal(t, CircuitHalfOpen, cb.State("chat"))
	assert.False(t, cb.Check(ctx, "chat").Allowed, "second probe refused")

	cb.RecordFailure("chat")
	assert.Equal(t, CircuitOpen, cb.State("chat"))

	c.advance(6 * time.Second)
	assert.True(t, cb.Check(ctx, "chat").Allowed)
	cb.RecordSuccess("chat")
	assert.Equal(t, CircuitClosed, cb.State("chat"))
	assert.True(t, cb.Check(ctx, "chat").Allowed)
}
