package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTokenBucket_TakeAndRefill(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now())

	for i := 0; i < 10; i++ {
		assert.True(t, bucket.take(clock.Now()), "request %d", i+1)
	}
	assert.False(t, bucket.take(clock.Now()), "bucket is empty")
	assert.Equal(t, time.Second, bucket.nextToken())

	clock.Advance(1100 * time.Millisecond)
	assert.True(t, bucket.take(clock.Now()), "one token refilled")
	assert.False(t, bucket.take(clock.Now()))

	clock.Advance(time.Hour)
	bucket.refill(clock.Now())
	assert.Equal(t, 10.0, bucket.tokens, "refill never exceeds capacity")
}

func TestTokenBucket_Status(t *testing.T) {
	clock := newFakeClock()
	bucket := newTokenBucket(10, 1.0, clock.Now())
	for i := 0; i < 5; i++ {
		bucket.take(clock.Now())
	}

	remaining, resetTime := bucket.status(clock.Now())
	assert.Equal(t, 5, remaining)
	assert.Equal(t, clock.Now().Add(5*time.Second), resetTime)
}

func TestLimiter_Allow(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute}, WithClock(clock.Now))
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/api/data", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/api/data", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 6*time.Second, info.RetryAfter)

	allowed, _ = limiter.Allow("10.0.0.2", "/api/data", "GET")
	assert.True(t, allowed, "clients have separate buckets")

	clock.Advance(6 * time.Second)
	allowed, _ = limiter.Allow("127.0.0.1", "/api/data", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.9": true},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("10.0.0.1", "/api/data", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow("10.0.0.9", "/api/data", "GET")
	assert.False(t, allowed)

	disabled := NewLimiter(&Config{Enabled: false})
	defer disabled.Stop()
	for i := 0; i < 5; i++ {
		allowed, info := disabled.Allow("10.0.0.9", "/api/sync-all", "POST")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	}, WithClock(newFakeClock().Now))
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		allowed, info := limiter.Allow("c", "/api/sync-all", "POST")
		require.True(t, allowed)
		assert.Equal(t, 10, info.Limit)
	}
	allowed, _ := limiter.Allow("c", "/api/sync-all", "POST")
	assert.False(t, allowed, "sync-all burst is 2")

	for id := 1; id <= 5; id++ {
		allowed, _ := limiter.Allow("c", fmt.Sprintf("/api/character/%d/sync", id), "POST")
		require.True(t, allowed)
	}
	allowed, _ = limiter.Allow("c", "/api/character/6/sync", "POST")
	assert.False(t, allowed, "character syncs share one bucket")

	allowed, info := limiter.Allow("c", "/api/character/1/gear", "POST")
	assert.True(t, allowed)
	assert.Equal(t, 120, info.Limit)

	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow("c", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Hour}, WithClock(newFakeClock().Now))
	defer limiter.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if ok, _ := limiter.Allow("c", "/api/data", "GET"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, allowed)
}

func TestLimiter_RemoveStale(t *testing.T) {
	clock := newFakeClock()
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute}, WithClock(clock.Now))
	defer limiter.Stop()

	limiter.Allow("old", "/api/data", "GET")
	clock.Advance(90 * time.Minute)
	limiter.Allow("new", "/api/data", "GET")

	limiter.removeStale()
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.buckets, 1)
	assert.Contains(t, limiter.buckets, "new:/api/data:GET")
}

func TestLimiter_StopEndsCleanup(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, CleanupInterval: time.Millisecond})
	limiter.Stop()
	limiter.Stop()
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter := NewLimiter(nil)
	defer limiter.Stop()

	allowed, info := limiter.Allow("c", "/api/data", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()
	tests := []struct {
		name   string
		path   string
		method string
		want   string
	}{
		{name: "sync all", path: "/api/sync-all", method: "POST", want: "/api/sync-all"},
		{name: "character sync", path: "/api/character/12/sync", method: "POST", want: "/api/character/*/sync"},
		{name: "item icon", path: "/api/item/19019/icon", method: "GET", want: "/api/item/*/icon"},
		{name: "write prefix", path: "/api/character/3/crests", method: "POST", want: "/api/"},
		{name: "delete prefix", path: "/api/characters/3", method: "DELETE", want: "/api/"},
		{name: "empty wildcard segment", path: "/api/character//sync", method: "POST", want: "/api/"},
		{name: "read falls through", path: "/api/data", method: "GET"},
		{name: "wrong method", path: "/api/item/1/icon", method: "POST", want: "/api/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Path)
		})
	}

	assert.Zero(t, MatchEndpoint("/metrics", "GET", configs).Limit)
	assert.Zero(t, MatchEndpoint("/health", "GET", configs).Limit)
}

func TestLoadConfigFrom(t *testing.T) {
	cfg, err := LoadConfigFrom(map[string]string{})
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1000, cfg.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	cfg, err = LoadConfigFrom(map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":  "50",
		"RATE_LIMIT_DEFAULT_WINDOW": "30s",
		"RATE_LIMIT_WHITELIST":      "10.0.0.1, 10.0.0.2,",
		"RATE_LIMIT_BLACKLIST":      "10.0.0.9",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.Equal(t, map[string]bool{"10.0.0.9": true}, cfg.Blacklist)

	cfg, err = LoadConfigFrom(map[string]string{"RATE_LIMIT_ENABLED": "false"})
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)

	_, err = LoadConfigFrom(map[string]string{"RATE_LIMIT_DEFAULT_LIMIT": "0"})
	assert.Error(t, err)
	_, err = LoadConfigFrom(map[string]string{"RATE_LIMIT_ENABLED": "maybe"})
	assert.Error(t, err)
}
