package dom

import "sync/atomic"

// nextElementID assigns element identities process-wide.
var nextElementID atomic.Uint64

// Element is the in-memory tree node used by the benchmark harness and
// tests. It implements Node.
type Element struct {
	id       OpaqueNode
	depth    int
	parent   *Element
	children []*Element
	data     GuardCell

	// Tag and Class are the style inputs for this element.
	Tag   string
	Class string
}

// NewElement creates a detached root-level element.
func NewElement(tag, class string) *Element {
	return &Element{
		id:    OpaqueNode(nextElementID.Add(1)),
		Tag:   tag,
		Class: class,
	}
}

// AppendChild attaches child as the last child of e and returns it.
// The tree must not be mutated once a traversal over it has started.
func (e *Element) AppendChild(child *Element) *Element {
	child.parent = e
	child.depth = e.depth + 1
	e.children = append(e.children, child)
	return child
}

// NumChildren returns the number of children.
func (e *Element) NumChildren() int {
	return len(e.children)
}

// Opaque implements Node.
func (e *Element) Opaque() OpaqueNode { return e.id }

// Depth implements Node.
func (e *Element) Depth() int { return e.depth }

// Parent implements Node.
func (e *Element) Parent() Node {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

// ChildrenIter implements Node.
func (e *Element) ChildrenIter(fn func(Node)) {
	for _, c := range e.children {
		fn(c)
	}
}

// Data implements Node.
func (e *Element) Data() *GuardCell { return &e.data }
