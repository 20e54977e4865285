// Package cmap contains a thread-safe concurrent awaitable map.
// It's sharded to reduce contention when many goroutines are reading and writing at once,
// and lets callers wait for a key to be inserted by some other goroutine rather than
// having to poll for it.
package cmap

import (
	"fmt"
	"sync"
)

// DefaultShardCount is a reasonable default shard count for large maps.
const DefaultShardCount = 1 << 8

// A Map is the top-level map type. All functions on it are threadsafe.
// It should be constructed via New() rather than creating an instance directly.
type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hasher func(K) uint64
	mask   uint64
}

// New creates a new Map using the given hasher to hash items in it.
// The shard count must be a power of 2; it will panic if not.
func New[K comparable, V any](shardCount uint64, hasher func(K) uint64) *Map[K, V] {
	mask := shardCount - 1
	if shardCount == 0 || (shardCount&mask) != 0 {
		panic(fmt.Sprintf("Shard count %d is not a power of 2", shardCount))
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], shardCount),
		mask:   mask,
		hasher: hasher,
	}
	for i := range m.shards {
		m.shards[i].m = map[K]entry[V]{}
	}
	return m
}

func (m *Map[K, V]) shard(key K) *shard[K, V] {
	return &m.shards[m.hasher(key)&m.mask]
}

// Add inserts the value if the key isn't already present, waking anything waiting for it.
// It returns true if the item was inserted, false if it already existed (in which case
// it isn't replaced).
func (m *Map[K, V]) Add(key K, val V) bool {
	_, inserted := m.shard(key).AddOrGet(key, val)
	return inserted
}

// AddOrGet either adds a new item (if the key doesn't exist) or gets the existing one.
// It returns the value now in the map, and true if it was the one passed in.
func (m *Map[K, V]) AddOrGet(key K, val V) (V, bool) {
	return m.shard(key).AddOrGet(key, val)
}

// Set is the equivalent of `map[key] = val`.
// It always overwrites any key that existed before.
func (m *Map[K, V]) Set(key K, val V) {
	m.shard(key).Set(key, val)
}

// Get returns the value for the key, and false if it isn't present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	return m.shard(key).Get(key)
}

// GetOrWait returns the value or, if the key isn't present, a channel that it can be waited
// on for. The caller will need to call Get again after the channel closes.
// The third return value is true if this is the first call that is awaiting this key.
// It's always false if the key exists.
func (m *Map[K, V]) GetOrWait(key K) (val V, wait <-chan struct{}, first bool) {
	return m.shard(key).GetOrWait(key)
}

// Values returns a slice of all the current values in the map.
// No particular ordering or consistency guarantees are made.
func (m *Map[K, V]) Values() []V {
	ret := []V{}
	for i := range m.shards {
		ret = m.shards[i].AppendValues(ret)
	}
	return ret
}

// Len returns the number of values currently in the map.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		n += m.shards[i].Len()
	}
	return n
}

// An entry is a value in the map, or a channel to wait on until it's there.
type entry[V any] struct {
	val  V
	wait chan struct{}
}

func (e entry[V]) present() bool {
	return e.wait == nil
}

// A shard is one of the individual shards of a map.
type shard[K comparable, V any] struct {
	m map[K]entry[V]
	l sync.Mutex
}

func (s *shard[K, V]) AddOrGet(key K, val V) (V, bool) {
	s.l.Lock()
	defer s.l.Unlock()
	existing, ok := s.m[key]
	if ok && existing.present() {
		return existing.val, false
	}
	s.m[key] = entry[V]{val: val}
	if ok {
		close(existing.wait)
	}
	return val, true
}

func (s *shard[K, V]) Set(key K, val V) {
	s.l.Lock()
	defer s.l.Unlock()
	existing, ok := s.m[key]
	s.m[key] = entry[V]{val: val}
	if ok && !existing.present() {
		close(existing.wait)
	}
}

func (s *shard[K, V]) Get(key K) (V, bool) {
	s.l.Lock()
	defer s.l.Unlock()
	e, ok := s.m[key]
	if !ok || !e.present() {
		var zero V
		return zero, false
	}
	return e.val, true
}

func (s *shard[K, V]) GetOrWait(key K) (val V, wait <-chan struct{}, first bool) {
	s.l.Lock()
	defer s.l.Unlock()
	if e, ok := s.m[key]; ok {
		return e.val, e.wait, false
	}
	ch := make(chan struct{})
	s.m[key] = entry[V]{wait: ch}
	return val, ch, true
}

func (s *shard[K, V]) AppendValues(vals []V) []V {
	s.l.Lock()
	defer s.l.Unlock()
	for _, e := range s.m {
		if e.present() {
			vals = append(vals, e.val)
		}
	}
	return vals
}

func (s *shard[K, V]) Len() int {
	s.l.Lock()
	defer s.l.Unlock()
	n := 0
	for _, e := range s.m {
		if e.present() {
			n++
		}
	}
	return n
}
