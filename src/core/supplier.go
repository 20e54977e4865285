package core

import "sync"

// A Supplier lazily provides a value of some type.
type Supplier[T any] interface {
	Get() T
}

// SupplierFunc adapts an ordinary function to a Supplier.
// It is called on every Get; wrap it with Memoize to compute it once.
type SupplierFunc[T any] func() T

// Get implements the Supplier interface.
func (f SupplierFunc[T]) Get() T {
	return f()
}

// OfInstance returns a Supplier that always returns the given value.
func OfInstance[T any](val T) Supplier[T] {
	return &memoized[T]{val: val, done: true}
}

// Memoize returns a Supplier that calls the given one at most once, even under concurrent
// first access, and returns the same result to every caller thereafter.
// Memoizing an already memoized supplier returns it unchanged.
func Memoize[T any](s Supplier[T]) Supplier[T] {
	if m, ok := s.(*memoized[T]); ok {
		return m
	}
	return &memoized[T]{delegate: s}
}

// MemoizeFunc is a convenience for Memoize(SupplierFunc(f)).
func MemoizeFunc[T any](f func() T) Supplier[T] {
	return Memoize[T](SupplierFunc[T](f))
}

type memoized[T any] struct {
	once     sync.Once
	delegate Supplier[T]
	val      T
	done     bool // set for suppliers constructed with a fixed value
}

func (m *memoized[T]) Get() T {
	if m.done {
		return m.val
	}
	m.once.Do(func() {
		m.val = m.delegate.Get()
		m.delegate = nil
	})
	return m.val
}
