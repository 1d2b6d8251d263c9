// Package viewstate tracks the loading state of data shown on a page.
//
// Each load is stamped with a generation; only the latest load may write its
// result, so a slow response can never overwrite a newer one.
package viewstate

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Snapshot is a consistent copy of a resource's state.
type Snapshot[T any] struct {
	Data       T
	Loading    bool
	Err        error
	Generation uint64
	UpdatedAt  time.Time
	// Loaded is true once any load has succeeded.
	Loaded bool
}

type Resource[T any] struct {
	mu     sync.Mutex
	state  Snapshot[T]
	issued uint64
	now    func() time.Time
}

// New returns a resource holding initial until the first successful load.
func New[T any](initial T) *Resource[T] {
	return &Resource[T]{state: Snapshot[T]{Data: initial}, now: time.Now}
}

// Begin starts a load and returns its generation.
func (r *Resource[T]) Begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	r.state.Loading = true
	return r.issued
}

// Commit applies the result of load gen. It reports false and changes
// nothing when a newer load has begun since. On error the previous data is
// kept and Err is set.
func (r *Resource[T]) Commit(gen uint64, data T, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.issued {
		return false
	}
	r.state.Loading = false
	r.state.Generation = gen
	r.state.Err = err
	if err == nil {
		r.state.Data = data
		r.state.Loaded = true
		r.state.UpdatedAt = r.now()
	}
	return true
}

// abandon clears Loading for gen without touching data or error.
func (r *Resource[T]) abandon(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen == r.issued {
		r.state.Loading = false
	}
}

// Load runs fn as a new generation and commits its result. A load whose
// context was cancelled only clears Loading. The returned snapshot always
// carries this caller's own result: if a newer load has begun since, the
// shared state is left to it but the caller still sees what fn returned.
func (r *Resource[T]) Load(ctx context.Context, fn func(context.Context) (T, error)) (Snapshot[T], error) {
	gen := r.Begin()
	data, err := fn(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil) {
		r.abandon(gen)
		return r.Snapshot(), err
	}
	if r.Commit(gen, data, err) {
		return r.Snapshot(), err
	}

	own := r.Snapshot()
	own.Generation = gen
	own.Err = err
	if err == nil {
		own.Data = data
		own.Loaded = true
		own.UpdatedAt = r.now()
	}
	return own, err
}

func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
