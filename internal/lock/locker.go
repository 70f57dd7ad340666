package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	TypeNone  = "none"
	TypeLocal = "local"
	TypeRedis = "redis"
)

// Locker guards a critical section. The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

type RedisConfig struct {
	Address       string        `yaml:"address"`
	Password      string        `yaml:"password"`
	DB            int           `yaml:"db"`
	Key           string        `yaml:"key"`
	TTL           time.Duration `yaml:"ttl"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

type Config struct {
	Type  string      `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// New creates a locker for the configured type. The returned close func releases
// any client the locker owns and is never nil.
func New(config Config) (Locker, func() error, error) {
	noClose := func() error { return nil }
	switch config.Type {
	case TypeNone:
		return NewNoopLocker(), noClose, nil
	case "", TypeLocal:
		return NewMutexLocker(), noClose, nil
	case TypeRedis:
		locker, err := NewRedisLockerFromConfig(config.Redis)
		if err != nil {
			return nil, nil, err
		}
		return locker, locker.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lock type: %s", config.Type)
	}
}

// NoopLocker never blocks. Concurrent read-modify-write cycles may overwrite each other.
type NoopLocker struct{}

func NewNoopLocker() *NoopLocker {
	return &NoopLocker{}
}

func (l *NoopLocker) Lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

// MutexLocker serializes callers within this process.
type MutexLocker struct {
	sem chan struct{}
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{sem: make(chan struct{}, 1)}
}

func (l *MutexLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() { <-l.sem })
	}, nil
}
