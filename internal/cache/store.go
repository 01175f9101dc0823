package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by a Store when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is the key-value backend behind the Facade. Implementations must be
// safe for concurrent use; the Facade adds no locking of its own.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	Delete(ctx context.Context, keys ...string) error
	// Scan lists keys matching a glob pattern.
	Scan(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

type NoOpStore struct{}

func NewNoOpStore() *NoOpStore {
	return &NoOpStore{}
}

func (NoOpStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, ErrMiss
}

func (NoOpStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (NoOpStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	return make([][]byte, len(keys)), nil
}

func (NoOpStore) Delete(ctx context.Context, keys ...string) error {
	return nil
}

func (NoOpStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}

func (NoOpStore) Close() error {
	return nil
}
