/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package lru provides a bounded least-recently-used cache.
//
// A Cache is safe for concurrent use.  Each Get and Put is atomic
// with respect to the cache's map and its access order.
package lru

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/Comcast/arrow/core"
)

// EvictFunc is called with an evicted entry.  It's called after the
// cache's lock has been released.
type EvictFunc[K comparable, V any] func(key K, value V)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache maps keys to values.  The least recently accessed entry is
// evicted when the cache would otherwise exceed its size.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	size    int
	order   *list.List // front is most recently used
	entries map[K]*list.Element
	onEvict EvictFunc[K, V]
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvict sets a function to call when an entry is evicted.
// Explicit removals are not evictions.
func WithEvict[K comparable, V any](f EvictFunc[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = f
	}
}

// New makes a Cache that holds at most size entries.
//
// A non-positive size is a *core.ConfigurationError.
func New[K comparable, V any](size int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if size <= 0 {
		return nil, &core.ConfigurationError{
			Component: "lru",
			Problem:   "cache size must be positive, not " + strconv.Itoa(size),
		}
	}
	c := &Cache[K, V]{
		size:    size,
		order:   list.New(),
		entries: make(map[K]*list.Element, size),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Size is the maximum number of entries.
func (c *Cache[K, V]) Size() int {
	return c.size
}

// Get returns the value for the key (if any) and makes the entry the
// most recently used.  A miss has no side effects.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, have := c.entries[key]; have {
		c.order.MoveToFront(e)
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Peek is Get without the promotion.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, have := c.entries[key]; have {
		return e.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put inserts or overwrites the entry for the key as the most recently
// used entry.  If the cache is then too big, the least recently used
// entries are evicted.
func (c *Cache[K, V]) Put(key K, value V) {
	var evicted []*entry[K, V]

	c.mu.Lock()
	if e, have := c.entries[key]; have {
		e.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(e)
	} else {
		c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	}
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		en := c.order.Remove(oldest).(*entry[K, V])
		delete(c.entries, en.key)
		evicted = append(evicted, en)
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, en := range evicted {
			c.onEvict(en.key, en.value)
		}
	}
}

// Remove deletes the entry for the key.  Reports whether there was
// one.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, have := c.entries[key]
	if !have {
		return false
	}
	c.order.Remove(e)
	delete(c.entries, key)
	return true
}

// Len is the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc := make([]K, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		acc = append(acc, e.Value.(*entry[K, V]).key)
	}
	return acc
}
