// Package feed serves the recent thread list and refreshes it after a
// thread is created.
package feed

import (
	"context"
	"sync"
	"time"

	"github.com/tangled-dev/tangled/shared/domain"
	"github.com/tangled-dev/tangled/shared/logger"
)

const defaultLimit = 50

type ThreadLister interface {
	RecentThreads(ctx context.Context, limit int) ([]domain.Thread, error)
}

type Feed struct {
	store ThreadLister
	limit int
	bus   *Bus

	mu         sync.Mutex
	cached     []domain.Thread
	valid      bool
	generation uint64 // bumped on every invalidation
}

func New(store ThreadLister, limit int, bus *Bus) *Feed {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Feed{store: store, limit: limit, bus: bus}
}

// Recent returns the newest threads, loading them from the store when the
// cache is cold.
func (f *Feed) Recent(ctx context.Context) ([]domain.Thread, error) {
	f.mu.Lock()
	if f.valid {
		threads := f.cached
		f.mu.Unlock()
		return threads, nil
	}
	gen := f.generation
	f.mu.Unlock()

	threads, err := f.store.RecentThreads(ctx, f.limit)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	// an invalidation during the load makes this result stale
	if f.generation == gen {
		f.cached = threads
		f.valid = true
	}
	f.mu.Unlock()
	return threads, nil
}

// Invalidate drops the cached list.
func (f *Feed) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached = nil
	f.valid = false
	f.generation++
}

// Refresh is the composer's refresh callback: drop the local cache and
// tell other instances to do the same.
func (f *Feed) Refresh() {
	f.Invalidate()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.bus.Publish(ctx); err != nil {
		logger.Log.Warn("thread list refresh not published", "error", err)
	}
}

// Listen invalidates the cache whenever another instance refreshes.
func (f *Feed) Listen(ctx context.Context) error {
	return f.bus.Subscribe(ctx, f.Invalidate)
}
