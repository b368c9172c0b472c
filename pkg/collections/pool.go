// Package collections provides generic pooled data structures for reducing
// allocation overhead on hot paths.
package collections

import (
	"sync"
)

// ============================================================================
// Generic Slice Pools
// ============================================================================

// SlicePool is a generic pool for slices of any type. Slices are returned
// to the pool cleared but with their capacity intact, so repeated users of
// similarly sized buffers stop allocating after warm-up.
type SlicePool[T any] struct {
	pool       sync.Pool
	initialCap int
}

// NewSlicePool creates a new slice pool with the given initial capacity.
func NewSlicePool[T any](initialCap int) *SlicePool[T] {
	if initialCap <= 0 {
		initialCap = 256
	}
	return &SlicePool[T]{
		initialCap: initialCap,
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]T, 0, initialCap)
				return &s
			},
		},
	}
}

// Get gets a slice from the pool.
func (p *SlicePool[T]) Get() *[]T {
	return p.pool.Get().(*[]T)
}

// Put returns a slice to the pool after clearing it.
func (p *SlicePool[T]) Put(s *[]T) {
	var zero T
	for i := range *s {
		(*s)[i] = zero // drop references so pooled buffers do not pin memory
	}
	*s = (*s)[:0]
	p.pool.Put(s)
}
