// Copyright (c) 2025 The lsmpool developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"

	"github.com/lsmpool/lsmpool/metrics"
)

var metricCacheLookups = metrics.LazyLoadCounterVec("cache_lookups_count", []string{"cache", "result"})

// LRU a typed LRU cache extends golang-lru, counting hits and misses.
type LRU[K comparable, V any] struct {
	name  string
	cache *lru.Cache
	hit   atomic.Int64
	miss  atomic.Int64
}

// NewLRU create a LRU cache instance.
// maxSize should be > 0, or an error returned.
func NewLRU[K comparable, V any](name string, maxSize int) (*LRU[K, V], error) {
	cache, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{name: name, cache: cache}, nil
}

// Get returns the cached value of key.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	if v, ok := l.cache.Get(key); ok {
		l.hit.Add(1)
		metricCacheLookups().AddWithLabel(1, map[string]string{"cache": l.name, "result": "hit"})
		return v.(V), true
	}
	l.miss.Add(1)
	metricCacheLookups().AddWithLabel(1, map[string]string{"cache": l.name, "result": "miss"})
	var zero V
	return zero, false
}

// Add adds a value to the cache.
func (l *LRU[K, V]) Add(key K, value V) {
	l.cache.Add(key, value)
}

// Len returns the number of cached items.
func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

// Stats returns the hit and miss counters.
func (l *LRU[K, V]) Stats() (hit, miss int64) {
	return l.hit.Load(), l.miss.Load()
}

// Loader defines loader to load value. Values are cached only when keep is true.
type Loader[K comparable, V any] func(key K) (value V, keep bool, err error)

// GetOrLoad first try to get from cache, do load if missed.
func (l *LRU[K, V]) GetOrLoad(key K, loader Loader[K, V]) (V, error) {
	if v, ok := l.Get(key); ok {
		return v, nil
	}
	v, keep, err := loader(key)
	if err != nil {
		var zero V
		return zero, err
	}
	if keep {
		l.Add(key, v)
	}
	return v, nil
}
