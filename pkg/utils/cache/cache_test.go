package cache

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"
)

func TestPassthrough(t *testing.T) {
	calls := 0
	c := Passthrough(func(_ context.Context, key string) (*int, error) {
		calls++
		v := len(key)
		return &v, nil
	})
	ctx := context.Background()
	for range 3 {
		v, err := c.Get(ctx, "monza")
		assert.NilError(t, err)
		assert.Equal(t, *v, 5)
	}
	c.InvalidateAll(ctx)
	assert.Equal(t, calls, 3)
}

func TestPassthrough_NoLoader(t *testing.T) {
	c := Passthrough[string, int](nil)
	_, err := c.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
