package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *atomic.Int32) {
	var factoryCalls atomic.Int32
	r := NewRegistry(func(guildID snowflake.ID) *Session {
		factoryCalls.Add(1)
		return NewSession(guildID, &fakeEngine{}, newFakeTransport(), SessionOptions{})
	})
	return r, &factoryCalls
}

func TestRegistryGetOrCreate(t *testing.T) {
	r, calls := newTestRegistry()

	s1 := r.GetOrCreate(1)
	s2 := r.GetOrCreate(1)
	s3 := r.GetOrCreate(2)

	assert.Same(t, s1, s2)
	assert.NotSame(t, s1, s3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegistryGet(t *testing.T) {
	r, _ := newTestRegistry()

	_, ok := r.Get(1)
	assert.False(t, ok)

	created := r.GetOrCreate(1)
	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Same(t, created, got)
}

func TestRegistryConcurrentGetOrCreate(t *testing.T) {
	r, calls := newTestRegistry()

	const workers = 32
	sessions := make([]*Session, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = r.GetOrCreate(99)
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, sessions[0], sessions[i], "all goroutines must observe the same session")
	}
	assert.Equal(t, int32(1), calls.Load(), "racing creations must not run the factory twice")
}

func TestRegistryEvict(t *testing.T) {
	r, calls := newTestRegistry()

	first := r.GetOrCreate(1)
	r.Evict(context.Background(), 1)

	_, ok := r.Get(1)
	assert.False(t, ok)

	second := r.GetOrCreate(1)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegistryShutdown(t *testing.T) {
	r, _ := newTestRegistry()
	s1 := r.GetOrCreate(1)
	s2 := r.GetOrCreate(2)
	s1.Play(testTrack("a"), Requester{})
	s2.Play(testTrack("b"), Requester{})

	r.Shutdown(context.Background())

	assert.Equal(t, StateIdle, s1.State())
	assert.Equal(t, StateIdle, s2.State())
	_, ok := r.Get(1)
	assert.False(t, ok)
	_, ok = r.Get(2)
	assert.False(t, ok)
}
