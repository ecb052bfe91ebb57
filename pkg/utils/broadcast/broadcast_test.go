package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	var zero T
	return zero
}

func TestServer_FanOut(t *testing.T) {
	source := make(chan int)
	s := NewServer("test", source)
	defer s.Close()

	a := s.Subscribe()
	b := s.Subscribe()
	go func() { source <- 1 }()
	assert.Equal(t, 1, receive(t, a))
	assert.Equal(t, 1, receive(t, b))

	s.CancelSubscription(b)
	_, ok := <-b
	assert.False(t, ok, "cancelled subscription should be closed")

	go func() { source <- 2 }()
	assert.Equal(t, 2, receive(t, a))
}

func TestServer_SkipsSlowSubscriber(t *testing.T) {
	source := make(chan int)
	s := NewServer("test", source, WithSkipTimeout[int](10*time.Millisecond))
	defer s.Close()

	slow := s.Subscribe()
	fast := s.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 3 {
			source <- i
		}
	}()
	for i := range 3 {
		assert.Equal(t, i, receive(t, fast))
	}
	<-done
	assert.Positive(t, s.(*server[int]).numSkip.Load())
	_ = slow
}

func TestServer_CloseClosesSubscribers(t *testing.T) {
	source := make(chan string)
	s := NewServer("test", source)
	ch := s.Subscribe()
	s.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late := s.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
}
