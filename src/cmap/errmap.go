package cmap

// An ErrMap extends Map with errors as a first-class concept, so that anything waiting on a
// key can find out that it's never going to arrive successfully.
type ErrMap[K comparable, V any] struct {
	m *Map[K, errV[V]]
}

type errV[V any] struct {
	err error
	val V
}

// NewErrMap returns a new ErrMap. Arguments are as New.
func NewErrMap[K comparable, V any](shardCount uint64, hasher func(K) uint64) *ErrMap[K, V] {
	return &ErrMap[K, V]{m: New[K, errV[V]](shardCount, hasher)}
}

// Add adds the new item to the map. It returns false if the key already existed.
func (m *ErrMap[K, V]) Add(key K, val V) bool {
	return m.m.Add(key, errV[V]{val: val})
}

// Set is the equivalent of `map[key] = val`.
func (m *ErrMap[K, V]) Set(key K, val V) {
	m.m.Set(key, errV[V]{val: val})
}

// SetError overwrites the key with the given error.
func (m *ErrMap[K, V]) SetError(key K, err error) {
	m.m.Set(key, errV[V]{err: err})
}

// Get returns the value corresponding to the given key and whether it's present.
// If an error has been set for the key, that is returned.
func (m *ErrMap[K, V]) Get(key K) (V, bool, error) {
	v, ok := m.m.Get(key)
	return v.val, ok, v.err
}

// GetOrWait is as Map.GetOrWait, additionally returning any error set for the key.
func (m *ErrMap[K, V]) GetOrWait(key K) (val V, wait <-chan struct{}, first bool, err error) {
	v, wait, first := m.m.GetOrWait(key)
	return v.val, wait, first, v.err
}
