// Package query is a small read-through cache for one remote resource.
//
// A Query holds the last fetched value and a stale flag. Get returns the
// cached value while it is fresh and otherwise fetches, sharing one in-flight
// fetch between concurrent callers. Invalidate and Set supersede any fetch
// already running: its context is cancelled and its reply is dropped, so an
// old response can never overwrite newer state.
package query

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

var errSuperseded = errors.New("query: fetch superseded")

// Fetcher loads the current value of the resource.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Query caches a single resource of type T.
type Query[T any] struct {
	fetch Fetcher[T]
	group singleflight.Group

	mu     sync.Mutex
	value  T
	has    bool
	stale  bool
	seq    uint64
	cancel context.CancelFunc
}

// New returns an empty Query backed by fetch.
func New[T any](fetch Fetcher[T]) *Query[T] {
	return &Query[T]{fetch: fetch}
}

// Get returns the cached value if fresh, otherwise fetches it.
// A fetch superseded while the caller waits is retried against the newer state.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if q.has && !q.stale {
			v := q.value
			q.mu.Unlock()
			return v, nil
		}
		seq := q.seq
		ch := q.group.DoChan(strconv.FormatUint(seq, 10), func() (any, error) {
			return q.run(ctx, seq)
		})
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if errors.Is(res.Err, errSuperseded) {
				continue
			}
			if res.Err != nil {
				return zero, res.Err
			}
			return res.Val.(T), nil
		}
	}
}

// run performs one fetch for generation seq. The fetch outlives the caller
// that started it so other waiters still get the result.
func (q *Query[T]) run(parent context.Context, seq uint64) (any, error) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	defer cancel()

	q.mu.Lock()
	if q.seq != seq {
		q.mu.Unlock()
		return nil, errSuperseded
	}
	q.cancel = cancel
	q.mu.Unlock()

	v, err := q.fetch(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seq != seq {
		return nil, errSuperseded
	}
	q.cancel = nil
	if err != nil {
		return nil, err
	}
	q.value = v
	q.has = true
	q.stale = false
	return v, nil
}

// Peek returns the cached value without fetching. ok is false if nothing
// has been cached yet; the value may be stale.
func (q *Query[T]) Peek() (value T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.value, q.has
}

// Stale reports whether the next Get will fetch.
func (q *Query[T]) Stale() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.has || q.stale
}

// Invalidate marks the value stale and supersedes any in-flight fetch.
// The stale value stays visible through Peek until the refetch lands.
func (q *Query[T]) Invalidate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.supersede()
	q.stale = true
}

// Set replaces the cached value and supersedes any in-flight fetch.
func (q *Query[T]) Set(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.supersede()
	q.value = v
	q.has = true
	q.stale = false
}

// Update applies fn to the cached value atomically. When fn reports a
// change the result is stored as fresh and any in-flight fetch is superseded.
func (q *Query[T]) Update(fn func(current T, ok bool) (next T, changed bool)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	next, changed := fn(q.value, q.has)
	if !changed {
		return false
	}
	q.supersede()
	q.value = next
	q.has = true
	q.stale = false
	return true
}

// Reset forgets the cached value entirely.
func (q *Query[T]) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.supersede()
	var zero T
	q.value = zero
	q.has = false
	q.stale = false
}

// supersede must be called with q.mu held.
func (q *Query[T]) supersede() {
	q.seq++
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}
