package dom

import (
	"fmt"
	"sync/atomic"
)

// ComputedStyle is the derived value the traversal computes for every node.
// Inherited properties come from the parent's style; Hash identifies the
// style inputs so equal inputs can share one computation.
type ComputedStyle struct {
	Color    uint32
	FontSize float32
	Display  string
	Hash     uint64
}

// NodeData is the mutable per-node record reconciled by the traversal.
type NodeData struct {
	Style      ComputedStyle
	Styled     bool
	ChildCount int
}

// GuardCell is a runtime-checked access cell for NodeData, allowing many
// readers or one writer. Conflicting access is a caller bug and panics
// rather than racing or deadlocking. Borrows must not be held across a
// dispatch boundary; scope them to a single callback invocation.
type GuardCell struct {
	// state is 0 when free, -1 when mutably borrowed, n>0 for n readers.
	state atomic.Int32
	data  NodeData
}

// Borrow takes shared access. The returned release function must be called
// when done.
func (c *GuardCell) Borrow() (*NodeData, func()) {
	for {
		s := c.state.Load()
		if s < 0 {
			panic(fmt.Sprintf("dom: node data already mutably borrowed (state=%d)", s))
		}
		if c.state.CompareAndSwap(s, s+1) {
			break
		}
	}
	return &c.data, func() { c.state.Add(-1) }
}

// BorrowMut takes exclusive access. The returned release function must be
// called when done.
func (c *GuardCell) BorrowMut() (*NodeData, func()) {
	if !c.state.CompareAndSwap(0, -1) {
		panic(fmt.Sprintf("dom: node data already borrowed (state=%d)", c.state.Load()))
	}
	return &c.data, func() { c.state.Store(0) }
}
