package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKey           = "feedback:append-lock"
	defaultRedisTTL           = 10 * time.Second
	defaultRedisRetryInterval = 25 * time.Millisecond
	releaseTimeout            = 2 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an
// expired holder cannot release a lock that was since taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-key lease shared by every replica that writes to the same log file.
type RedisLocker struct {
	client        redis.UniversalClient
	key           string
	ttl           time.Duration
	retryInterval time.Duration
	ownsClient    bool
}

func NewRedisLocker(client redis.UniversalClient, key string, ttl, retryInterval time.Duration) *RedisLocker {
	if key == "" {
		key = defaultRedisKey
	}
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if retryInterval <= 0 {
		retryInterval = defaultRedisRetryInterval
	}
	return &RedisLocker{
		client:        client,
		key:           key,
		ttl:           ttl,
		retryInterval: retryInterval,
	}
}

func NewRedisLockerFromConfig(config RedisConfig) (*RedisLocker, error) {
	if config.Address == "" {
		return nil, errors.New("redis lock requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	locker := NewRedisLocker(client, config.Key, config.TTL, config.RetryInterval)
	locker.ownsClient = true
	return locker, nil
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire redis lock %s: %w", l.key, err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for redis lock %s: %w", l.key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(token) })
	}, nil
}

func (l *RedisLocker) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		// the lease still expires after ttl
		slog.Error("failed to release redis lock", "key", l.key, "error", err)
	}
}

// Close closes the redis client if it was created by this locker.
func (l *RedisLocker) Close() error {
	if !l.ownsClient {
		return nil
	}
	return l.client.Close()
}
