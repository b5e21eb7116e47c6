package limiter

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// memCounter is a Counter for tests; TTLs are ignored.
type memCounter struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemCounter() *memCounter {
	return &memCounter{vals: map[string]string{}}
}

func (m *memCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.vals[key], 10, 64)
	n++
	m.vals[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *memCounter) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}

func (m *memCounter) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.vals[key]
	return val, ok, nil
}

func (m *memCounter) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

func TestLoginLimiter(t *testing.T) {
	ctx := context.Background()
	counter := newMemCounter()
	limiter := NewLoginLimiter(counter, 3, time.Minute)

	assert.True(t, limiter.Allowed(ctx, "alice", "10.0.0.1"))
	for range 3 {
		limiter.RecordFailure(ctx, "alice", "10.0.0.1")
	}
	assert.False(t, limiter.Allowed(ctx, "alice", "10.0.0.1"))

	// Other pairs are unaffected.
	assert.True(t, limiter.Allowed(ctx, "alice", "10.0.0.2"))
	assert.True(t, limiter.Allowed(ctx, "bob", "10.0.0.1"))

	limiter.Reset(ctx, "alice", "10.0.0.1")
	assert.True(t, limiter.Allowed(ctx, "alice", "10.0.0.1"))
}

func TestLoginLimiterWithoutCounter(t *testing.T) {
	ctx := context.Background()
	limiter := NewLoginLimiter(nil, 3, time.Minute)

	limiter.RecordFailure(ctx, "alice", "10.0.0.1")
	assert.True(t, limiter.Allowed(ctx, "alice", "10.0.0.1"))
}

func TestCapacityCache(t *testing.T) {
	ctx := context.Background()
	cache := NewCapacityCache(newMemCounter(), time.Minute)

	_, ok := cache.Get(ctx, 7)
	assert.False(t, ok)

	cache.Put(ctx, 7, 2)
	used, ok := cache.Get(ctx, 7)
	assert.True(t, ok)
	assert.Equal(t, 2, used)

	cache.Invalidate(ctx, 7)
	_, ok = cache.Get(ctx, 7)
	assert.False(t, ok)
}
