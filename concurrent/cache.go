// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package concurrent provides data structures which are safe for concurrent use.
package concurrent

import "sync"

// CacheOptions configure a [Cache].
type CacheOptions struct {
	maxEntries int
}

// CacheOption sets a value on [CacheOptions].
type CacheOption interface {
	ApplyCacheOption(*CacheOptions)
}

type cacheOptionFunc func(*CacheOptions)

func (f cacheOptionFunc) ApplyCacheOption(co *CacheOptions) {
	f(co)
}

// MaxEntries bounds the number of entries kept by a [Cache]. Once full,
// the oldest entry is evicted first. A value <= 0 means unbounded.
func MaxEntries(n int) CacheOption {
	return cacheOptionFunc(func(co *CacheOptions) {
		co.maxEntries = n
	})
}

// Cache is a map guarded by a mutex. Values are computed at most once per
// key while the key stays cached. The mutex is never held while computing,
// so a slow computation only blocks callers asking for the same key.
type Cache[K comparable, V any] struct {
	mu         sync.Mutex
	data       map[K]*entry[V]
	order      []K
	maxEntries int
}

type entry[V any] struct {
	done chan struct{}
	v    V
	err  error
}

// NewCache initializes a [Cache].
func NewCache[K comparable, V any](opts ...CacheOption) *Cache[K, V] {
	co := &CacheOptions{}
	for _, opt := range opts {
		opt.ApplyCacheOption(co)
	}

	return &Cache[K, V]{
		data:       make(map[K]*entry[V]),
		maxEntries: co.maxEntries,
	}
}

// Get returns the value cached for k. Keys still being computed or whose
// computation failed are reported as missing.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	e, ok := c.data[k]
	c.mu.Unlock()

	var zero V
	if !ok {
		return zero, false
	}
	select {
	case <-e.done:
	default:
		return zero, false
	}
	if e.err != nil {
		return zero, false
	}
	return e.v, true
}

// GetOr returns the value cached for k or stores the result of f.
// Concurrent callers for the same k wait for a single call to f. Errors
// from f are cached as well, since f is expected to be deterministic.
func (c *Cache[K, V]) GetOr(k K, f func() (V, error)) (V, error) {
	c.mu.Lock()
	e, ok := c.data[k]
	if !ok {
		e = &entry[V]{done: make(chan struct{})}
		c.put(k, e)
	}
	c.mu.Unlock()

	if ok {
		<-e.done
		return e.v, e.err
	}

	defer close(e.done)
	e.v, e.err = f()
	return e.v, e.err
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}

func (c *Cache[K, V]) put(k K, e *entry[V]) {
	if c.maxEntries > 0 && len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.data, oldest)
	}

	c.data[k] = e
	c.order = append(c.order, k)
}
