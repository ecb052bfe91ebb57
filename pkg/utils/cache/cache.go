// Package cache declares the lookup caches used for slowly changing api data.
package cache

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Loader fetches the value for key from the backing source
type Loader[K comparable, V any] func(ctx context.Context, key K) (*V, error)

type Cache[K comparable, V any] interface {
	Get(ctx context.Context, key K) (*V, error)
	Invalidate(ctx context.Context, key K)
	InvalidateAll(ctx context.Context)
}

// Passthrough returns a Cache that calls load on every Get and keeps nothing.
func Passthrough[K comparable, V any](load Loader[K, V]) Cache[K, V] {
	return passthrough[K, V](load)
}

type passthrough[K comparable, V any] Loader[K, V]

func (p passthrough[K, V]) Get(ctx context.Context, key K) (*V, error) {
	if p == nil {
		return nil, ErrCacheMiss
	}
	return p(ctx, key)
}

func (p passthrough[K, V]) Invalidate(context.Context, K) {}

func (p passthrough[K, V]) InvalidateAll(context.Context) {}
