// Package resource is a keyed read cache for backend resources. Concurrent
// reads of one key share a single request, and invalidation discards any
// request that was already in flight for the old generation.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached resource, e.g. "cart" or "car:5".
type Key string

const (
	Cars  Key = "cars"
	Cart  Key = "cart"
	Users Key = "users"
	Me    Key = "me"
)

// CarKey is the key of a single car.
func CarKey(id uint) Key {
	return Key(fmt.Sprintf("car:%d", id))
}

// State is the result of a read.
type State[T any] struct {
	Data      T
	IsLoading bool
	Err       error
	UpdatedAt time.Time
}

// HasData reports whether a successful read has ever settled for the key.
func (s State[T]) HasData() bool {
	return !s.UpdatedAt.IsZero()
}

// Retryable is implemented by errors a read may be retried on.
type Retryable interface {
	Retryable() bool
}

// Options configures a Cache.
type Options struct {
	// StaleTime is how long a settled read is served without refetching.
	// Zero means every read refetches.
	StaleTime time.Duration
	// Retry is the number of extra attempts for a failed read, capped at 1.
	Retry int
	Now   func() time.Time
}

type entry struct {
	data      any
	err       error
	updatedAt time.Time
	stale     bool
	gen       uint64
	loading   int
}

// Cache holds the read state of one session.
type Cache struct {
	opts  Options
	group singleflight.Group

	mu      sync.Mutex
	entries map[Key]*entry
}

// New creates an empty Cache.
func New(opts Options) *Cache {
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	if opts.Retry > 1 {
		opts.Retry = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{opts: opts, entries: make(map[Key]*entry)}
}

func (c *Cache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Query returns the cached value for key when fresh, and otherwise fetches
// it. Concurrent callers for the same key and generation share one fetch.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) State[T] {
	const maxGenerations = 3

	var last State[T]
	for i := 0; i < maxGenerations; i++ {
		c.mu.Lock()
		e := c.entry(key)
		if data, ok := e.data.(T); ok && !e.stale && e.err == nil && c.fresh(e) {
			st := State[T]{Data: data, UpdatedAt: e.updatedAt}
			c.mu.Unlock()
			return st
		}
		gen := e.gen
		c.mu.Unlock()

		v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
			c.setLoading(key, 1)
			defer c.setLoading(key, -1)
			val, err := fetchWithRetry(context.WithoutCancel(ctx), c.opts.Retry, fetch)
			return val, err
		})

		settled := c.settle(key, gen, v, err)
		last = peek[T](c, key)
		if settled {
			if err != nil {
				last.Err = err
			}
			last.IsLoading = false
			return last
		}
	}
	return last
}

func fetchWithRetry[T any](ctx context.Context, retries int, fetch func(context.Context) (T, error)) (T, error) {
	val, err := fetch(ctx)
	for i := 0; err != nil && i < retries && retryable(err); i++ {
		val, err = fetch(ctx)
	}
	return val, err
}

func retryable(err error) bool {
	var r Retryable
	return errors.As(err, &r) && r.Retryable()
}

// settle records a finished fetch unless the key was invalidated meanwhile.
// It reports whether the result was kept.
func (c *Cache) settle(key Key, gen uint64, v any, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	if e.gen != gen {
		return false
	}
	if err != nil {
		e.err = err
		e.stale = true
		return true
	}
	e.data = v
	e.err = nil
	e.stale = false
	e.updatedAt = c.opts.Now()
	return true
}

func (c *Cache) fresh(e *entry) bool {
	if e.updatedAt.IsZero() {
		return false
	}
	return c.opts.StaleTime > 0 && c.opts.Now().Sub(e.updatedAt) < c.opts.StaleTime
}

func (c *Cache) setLoading(key Key, delta int) {
	c.mu.Lock()
	c.entry(key).loading += delta
	c.mu.Unlock()
}

// Invalidate marks keys stale. Reads already in flight for them are
// discarded when they settle.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		e := c.entry(key)
		e.stale = true
		e.gen++
	}
}

// Reset drops every cached value, e.g. when the session changes hands.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		c.entries[key] = &entry{gen: e.gen + 1, loading: e.loading}
	}
}

// Peek returns the cached state of key without fetching.
func Peek[T any](c *Cache, key Key) State[T] {
	return peek[T](c, key)
}

func peek[T any](c *Cache, key Key) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State[T]{}
	}
	st := State[T]{Err: e.err, UpdatedAt: e.updatedAt, IsLoading: e.loading > 0}
	if data, ok := e.data.(T); ok {
		st.Data = data
	}
	return st
}
