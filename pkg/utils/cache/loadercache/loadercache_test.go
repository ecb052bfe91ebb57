package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/utils/cache"
)

func TestLoaderCache(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	c := New(
		WithExpiration[string, int](time.Minute),
		WithClock[string, int](func() time.Time { return now }),
		WithLoader[string, int](func(_ context.Context, key string) (*int, error) {
			calls++
			if key == "bad" {
				return nil, errors.New("load failed")
			}
			v := len(key)
			return &v, nil
		}),
	)
	ctx := context.Background()

	v, err := c.Get(ctx, "spa")
	assert.NilError(t, err)
	assert.Equal(t, *v, 3)
	_, _ = c.Get(ctx, "spa")
	assert.Equal(t, calls, 1, "second get should be served from cache")

	now = now.Add(2 * time.Minute)
	_, _ = c.Get(ctx, "spa")
	assert.Equal(t, calls, 2, "expired entry should be reloaded")

	c.Invalidate(ctx, "spa")
	_, _ = c.Get(ctx, "spa")
	assert.Equal(t, calls, 3)

	_, err = c.Get(ctx, "bad")
	assert.ErrorContains(t, err, "load failed")
	_, _ = c.Get(ctx, "bad")
	assert.Equal(t, calls, 5, "failed loads are not cached")

	c.InvalidateAll(ctx)
	_, _ = c.Get(ctx, "spa")
	assert.Equal(t, calls, 6)
}

func TestLoaderCache_NoLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
