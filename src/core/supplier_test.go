package core

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func TestMemoizeCallsOnce(t *testing.T) {
	var calls int64
	s := MemoizeFunc(func() int {
		atomic.AddInt64(&calls, 1)
		return 42
	})
	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			assert.Equal(t, 42, s.Get())
			return nil
		})
	}
	g.Wait()
	assert.EqualValues(t, 1, calls)
	assert.Equal(t, 42, s.Get())
	assert.EqualValues(t, 1, calls)
}

func TestMemoizeIsIdempotent(t *testing.T) {
	s := MemoizeFunc(func() string { return "x" })
	assert.Same(t, s, Memoize(s))
	i := OfInstance("y")
	assert.Same(t, i, Memoize(i))
}

func TestSupplierFuncIsCalledEveryTime(t *testing.T) {
	calls := 0
	s := SupplierFunc[int](func() int {
		calls++
		return calls
	})
	assert.Equal(t, 1, s.Get())
	assert.Equal(t, 2, s.Get())
}

func TestOfInstance(t *testing.T) {
	assert.Equal(t, []string{"a"}, OfInstance([]string{"a"}).Get())
	assert.Nil(t, OfInstance[[]string](nil).Get())
}
