package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

const redisMaxAttempts = 5

// DeliveryClaimTTL bounds how long a processed message id is remembered.
const DeliveryClaimTTL = 24 * time.Hour

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects and sets the global Redis client + lock client.
// Call this from main() AFTER the HTTP server is listening.
func ConnectRedisWithRetry(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("REDIS_ADDRESS not set")
	}
	logger := GetLogger()

	var lastErr error
	for attempt := 1; attempt <= redisMaxAttempts; attempt++ {
		c := redis.NewClient(&redis.Options{
			Addr:     addr,
			DB:       0,
			PoolSize: 20,
		})
		err := c.Ping(ctx).Err()
		if err == nil {
			rdb = c
			locker = redislock.New(rdb)
			logger.WithField("addr", addr).WithField("attempt", attempt).Info("connected to redis")
			return nil
		}
		_ = c.Close()
		lastErr = err

		sleep := backoff(attempt)
		logger.WithField("addr", addr).WithField("attempt", attempt).
			Warnf("failed to connect redis: %v; retrying in %s", err, sleep)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return fmt.Errorf("connect redis %s: %w", addr, lastErr)
}

func CloseRedis() {
	if rdb != nil {
		_ = rdb.Close()
	}
}

// ClaimOnce records key for ttl and reports whether this caller is the first to claim it.
// With no Redis configured every claim succeeds.
func ClaimOnce(ctx context.Context, c *redis.Client, key string, ttl time.Duration) (bool, error) {
	if c == nil {
		return true, nil
	}
	return c.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ReleaseClaim forgets key so a redelivery is processed again.
func ReleaseClaim(ctx context.Context, c *redis.Client, key string) error {
	if c == nil {
		return nil
	}
	return c.Del(ctx, key).Err()
}
