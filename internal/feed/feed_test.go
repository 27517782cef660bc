package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan Snapshot[T]) Snapshot[T] {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "stream closed unexpectedly")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func TestWatchEmitsInitialAndChangedSnapshots(t *testing.T) {
	bus := NewMemoryBus()
	var version atomic.Int32

	stream, cancel, err := Watch(context.Background(), bus, Jobs, func(context.Context) ([]int, error) {
		return []int{int(version.Load())}, nil
	})
	require.NoError(t, err)
	defer cancel()

	first := receive(t, stream)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, []int{0}, first.Records)

	version.Store(1)
	require.NoError(t, bus.Publish(context.Background(), Jobs))
	second := receive(t, stream)
	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, []int{1}, second.Records)
}

func TestWatchIgnoresOtherCollections(t *testing.T) {
	bus := NewMemoryBus()
	stream, cancel, err := Watch(context.Background(), bus, Applications, func(context.Context) ([]string, error) {
		return nil, nil
	})
	require.NoError(t, err)
	defer cancel()

	receive(t, stream)
	require.NoError(t, bus.Publish(context.Background(), Jobs))

	select {
	case s := <-stream:
		t.Fatalf("unexpected snapshot %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchCarriesLoadErrors(t *testing.T) {
	bus := NewMemoryBus()
	boom := errors.New("read failed")
	stream, cancel, err := Watch(context.Background(), bus, Jobs, func(context.Context) ([]int, error) {
		return nil, boom
	})
	require.NoError(t, err)
	defer cancel()

	s := receive(t, stream)
	assert.ErrorIs(t, s.Err, boom)
}

func TestCancelClosesStream(t *testing.T) {
	bus := NewMemoryBus()
	stream, cancel, err := Watch(context.Background(), bus, Jobs, func(context.Context) ([]int, error) {
		return nil, nil
	})
	require.NoError(t, err)

	receive(t, stream)
	cancel()
	cancel()

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
	assert.Empty(t, bus.subs[Jobs])
}

func TestParseCollection(t *testing.T) {
	c, ok := ParseCollection("jobs")
	assert.True(t, ok)
	assert.Equal(t, Jobs, c)

	_, ok = ParseCollection("principals")
	assert.False(t, ok)
}
