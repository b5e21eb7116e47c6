package limiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"k8s.io/klog/v2"
)

// CapacityCache keeps the per-project count of assigned teams for the
// allocation read path. The commit transaction always counts from the
// database; the cache only serves listings and is invalidated after every
// commit.
type CapacityCache struct {
	counter Counter
	ttl     time.Duration
}

func NewCapacityCache(counter Counter, ttl time.Duration) *CapacityCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CapacityCache{counter: counter, ttl: ttl}
}

// GetCapacityCache builds the cache over the shared Redis client; with no
// Redis every lookup is a miss.
func GetCapacityCache() *CapacityCache {
	var counter Counter
	if GetRedis() != nil {
		counter = NewRedisCounter(client)
	}
	return NewCapacityCache(counter, 0)
}

func capacityKey(projectID uint) string {
	return fmt.Sprintf("atelier:capacity:%d", projectID)
}

func (c *CapacityCache) Get(ctx context.Context, projectID uint) (int, bool) {
	if c.counter == nil {
		return 0, false
	}
	val, found, err := c.counter.Get(ctx, capacityKey(projectID))
	if err != nil || !found {
		return 0, false
	}
	used, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return used, true
}

func (c *CapacityCache) Put(ctx context.Context, projectID uint, used int) {
	if c.counter == nil {
		return
	}
	if err := c.counter.Set(ctx, capacityKey(projectID), strconv.Itoa(used), c.ttl); err != nil {
		klog.Errorf("capacity cache put for project %d: %v", projectID, err)
	}
}

func (c *CapacityCache) Invalidate(ctx context.Context, projectID uint) {
	if c.counter == nil {
		return
	}
	if err := c.counter.Del(ctx, capacityKey(projectID)); err != nil {
		klog.Errorf("capacity cache invalidate for project %d: %v", projectID, err)
	}
}
