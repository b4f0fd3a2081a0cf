package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_CachesUntilInvalidated(t *testing.T) {
	var calls int32
	q := New(func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	})
	ctx := context.Background()

	assert.True(t, q.Stale())
	v, err := q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "fresh value must be served from cache")

	q.Invalidate()
	peeked, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, 1, peeked, "stale value stays visible")

	v, err = q.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGet_ConcurrentCallersShareOneFetch(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	q := New(func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "catalog", nil
	})

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := q.Get(context.Background())
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "catalog", r)
	}
}

func TestSet_SupersedesInFlightFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchCtx context.Context
	q := New(func(ctx context.Context) (string, error) {
		fetchCtx = ctx
		close(started)
		<-release
		return "old server reply", nil
	})

	done := make(chan string, 1)
	go func() {
		v, err := q.Get(context.Background())
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	q.Set("newer local state")
	assert.ErrorIs(t, fetchCtx.Err(), context.Canceled, "superseded fetch must be cancelled")
	close(release)

	assert.Equal(t, "newer local state", <-done)
	v, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, "newer local state", v)
}

func TestInvalidate_DropsInFlightReply(t *testing.T) {
	var calls int32
	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	q := New(func(ctx context.Context) (int, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(firstStarted)
			<-releaseFirst
			return -1, nil
		}
		return int(n), nil
	})

	done := make(chan int, 1)
	go func() {
		v, err := q.Get(context.Background())
		assert.NoError(t, err)
		done <- v
	}()

	<-firstStarted
	q.Invalidate()
	close(releaseFirst)

	assert.Equal(t, 2, <-done, "waiter must retry against the newer generation")
	v, _ := q.Peek()
	assert.Equal(t, 2, v)
}

func TestGet_ErrorKeepsPreviousValue(t *testing.T) {
	fail := false
	q := New(func(ctx context.Context) (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return 7, nil
	})
	ctx := context.Background()

	_, err := q.Get(ctx)
	require.NoError(t, err)

	fail = true
	q.Invalidate()
	_, err = q.Get(ctx)
	require.EqualError(t, err, "boom")

	v, ok := q.Peek()
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	assert.True(t, q.Stale())
}

func TestGet_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	q := New(func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReset(t *testing.T) {
	q := New(func(ctx context.Context) (int, error) { return 3, nil })
	_, err := q.Get(context.Background())
	require.NoError(t, err)

	q.Reset()
	_, ok := q.Peek()
	assert.False(t, ok)
	assert.True(t, q.Stale())
}

func TestUpdate(t *testing.T) {
	q := New(func(ctx context.Context) ([]int, error) { return []int{1, 2}, nil })

	changed := q.Update(func(cur []int, ok bool) ([]int, bool) {
		assert.False(t, ok)
		return nil, false
	})
	assert.False(t, changed)
	assert.True(t, q.Stale())

	_, err := q.Get(context.Background())
	require.NoError(t, err)
	q.Invalidate()

	changed = q.Update(func(cur []int, ok bool) ([]int, bool) {
		require.True(t, ok)
		return append(append([]int{}, cur...), 3), true
	})
	assert.True(t, changed)
	assert.False(t, q.Stale(), "an updated value counts as fresh")
	v, _ := q.Peek()
	assert.Equal(t, []int{1, 2, 3}, v)
}
