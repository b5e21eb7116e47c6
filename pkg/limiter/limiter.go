// Package limiter counts login attempts in Redis with TTL keys, so the
// limit holds across replicas and survives restarts. It also hosts the
// small capacity cache used by the allocation read path.
package limiter

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"k8s.io/klog/v2"

	"github.com/atelier-edu/atelier/pkg/config"
)

// Counter is the storage behind the limiter. Redis implements it; tests
// use an in-memory one.
type Counter interface {
	// Incr bumps key and returns the new value. The window TTL is set when
	// the key is created.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

var (
	once   sync.Once
	client *redis.Client
)

// GetRedis returns the shared Redis client, or nil when no address is
// configured.
func GetRedis() *redis.Client {
	once.Do(func() {
		conf := config.GetConfig().Redis
		if conf.Addr == "" {
			klog.Info("redis not configured, limiter runs permissive")
			return
		}
		client = redis.NewClient(&redis.Options{
			Addr:     conf.Addr,
			Password: conf.Password,
			DB:       conf.DB,
		})
	})
	return client
}

type redisCounter struct {
	client *redis.Client
}

func NewRedisCounter(c *redis.Client) Counter {
	return &redisCounter{client: c}
}

func (r *redisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisCounter) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCounter) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *redisCounter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// LoginLimiter throttles failed logins per username+IP pair.
type LoginLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
}

// NewLoginLimiter builds a limiter over counter; a nil counter makes every
// check pass, which is the degraded mode when Redis is absent.
func NewLoginLimiter(counter Counter, limit int, window time.Duration) *LoginLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginLimiter{counter: counter, limit: limit, window: window}
}

// GetLoginLimiter wires the limiter from config and the shared client.
func GetLoginLimiter() *LoginLimiter {
	conf := config.GetConfig().Auth
	var counter Counter
	if GetRedis() != nil {
		counter = NewRedisCounter(client)
	}
	return NewLoginLimiter(counter, conf.LoginAttemptLimit,
		time.Duration(conf.LoginAttemptWindowMin)*time.Minute)
}

func loginKey(username, ip string) string {
	return fmt.Sprintf("atelier:login:%s:%s", username, ip)
}

// Allowed reports whether another login attempt may proceed. Counter
// outages fail open: login keeps working without the throttle.
func (l *LoginLimiter) Allowed(ctx context.Context, username, ip string) bool {
	if l.counter == nil {
		return true
	}
	val, found, err := l.counter.Get(ctx, loginKey(username, ip))
	if err != nil {
		klog.Errorf("login limiter read: %v", err)
		return true
	}
	if !found {
		return true
	}
	attempts, _ := strconv.Atoi(val)
	return attempts < l.limit
}

// RecordFailure counts one failed attempt for the pair.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username, ip string) {
	if l.counter == nil {
		return
	}
	if _, err := l.counter.Incr(ctx, loginKey(username, ip), l.window); err != nil {
		klog.Errorf("login limiter incr: %v", err)
	}
}

// Reset clears the pair after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username, ip string) {
	if l.counter == nil {
		return
	}
	if err := l.counter.Del(ctx, loginKey(username, ip)); err != nil {
		klog.Errorf("login limiter reset: %v", err)
	}
}
