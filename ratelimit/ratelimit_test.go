package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMemoryLimiter(t *testing.T) (*MemoryLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(15*time.Minute, time.Hour)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestMemoryLimiter_RejectsOverLimitWithRetryAfter(t *testing.T) {
	l, clock := newTestMemoryLimiter(t)
	policy := Policy{Name: "login", Limit: 3, Window: 15 * time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, policy, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 2-i, d.Remaining)
		clock.Advance(time.Minute)
	}

	d, err := l.Allow(ctx, policy, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 12*time.Minute, d.RetryAfter, "first hit at 0m leaves the window at 15m, now is 3m")

	clock.Advance(12 * time.Minute)
	d, err = l.Allow(ctx, policy, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "the window slides once the oldest hit expires")
}

func TestMemoryLimiter_KeysAndPoliciesAreIndependent(t *testing.T) {
	l, _ := newTestMemoryLimiter(t)
	policies := NewAuthPolicies(1, 1, 1, time.Minute)
	ctx := context.Background()

	d, _ := l.Allow(ctx, policies.Login, "a")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, policies.Login, "a")
	assert.False(t, d.Allowed)

	d, _ = l.Allow(ctx, policies.Login, "b")
	assert.True(t, d.Allowed, "other addresses have their own budget")
	d, _ = l.Allow(ctx, policies.Register, "a")
	assert.True(t, d.Allowed, "register is throttled separately from login")
	d, _ = l.Allow(ctx, policies.Session, "a")
	assert.True(t, d.Allowed)
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	l, clock := newTestMemoryLimiter(t)
	policy := Policy{Name: "session", Limit: 5, Window: 15 * time.Minute}

	_, _ = l.Allow(context.Background(), policy, "idle")
	clock.Advance(10 * time.Minute)
	_, _ = l.Allow(context.Background(), policy, "active")
	assert.Equal(t, 2, l.Len())

	clock.Advance(6 * time.Minute)
	l.cleanup()
	assert.Equal(t, 1, l.Len())
}

func TestAPILimiter(t *testing.T) {
	l := NewAPILimiter(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("user-1")
		assert.True(t, ok, "request %d within burst", i)
	}
	ok, retry := l.Allow("user-1")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, 20*time.Second)

	ok, _ = l.Allow("user-2")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())
}

// TestRedisLimiter runs against a real server when TRIP_TEST_REDIS_ADDR is set.
func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("TRIP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRIP_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	l := NewRedisLimiter(client)
	policy := Policy{Name: "test-" + uuid.NewString(), Limit: 2, Window: time.Minute}
	ctx := context.Background()

	d, err := l.Allow(ctx, policy, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 1}, d)

	d, err = l.Allow(ctx, policy, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Decision{Allowed: true, Remaining: 0}, d)

	d, err = l.Allow(ctx, policy, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, 50*time.Second)
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)
}
