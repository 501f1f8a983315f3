// Copyright (C) 2024-2026, Omnidao Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value   V
	fetched time.Time
}

// TTLCache caches fetched values per key with a shared TTL. Concurrent
// fetches for the same key are collapsed into one upstream call.
type TTLCache[K comparable, V any] struct {
	data    map[K]entry[V]
	ttl     time.Duration
	lock    sync.RWMutex
	sfGroup singleflight.Group
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
	}
}

// Get returns the cached value for key if it is still fresh, otherwise
// fetches it with fetchFunc. With skipCache the entry is dropped before
// fetching so no other reader can observe the stale value; concurrent
// callers are deduplicated and share the fetched result.
func (c *TTLCache[K, V]) Get(key K, fetchFunc func(K) (V, error), skipCache bool) (V, error) {
	if skipCache {
		c.Forget(key)
	} else {
		c.lock.RLock()
		e, exists := c.data[key]
		c.lock.RUnlock()
		if exists && time.Since(e.fetched) < c.ttl {
			return e.value, nil
		}
	}

	v, err, _ := c.sfGroup.Do(keyToString(key), func() (interface{}, error) {
		value, fetchErr := fetchFunc(key)
		if fetchErr != nil {
			return *new(V), fetchErr
		}

		c.lock.Lock()
		c.data[key] = entry[V]{value: value, fetched: time.Now()}
		c.lock.Unlock()

		return value, nil
	})
	if err != nil {
		return *new(V), err
	}
	return v.(V), nil
}

// Forget drops the entry for key, forcing the next Get to fetch.
func (c *TTLCache[K, V]) Forget(key K) {
	c.lock.Lock()
	delete(c.data, key)
	c.lock.Unlock()
}

// keyToString allows both fmt.Stringer and primitive key types.
func keyToString[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}
