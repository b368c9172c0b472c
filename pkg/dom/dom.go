// Package dom defines the node handles the traversal engine operates on.
//
// Node handles are confined to the goroutine that obtained them. The only
// sanctioned way to move a handle to another worker is to wrap it in a
// SendNode via UnsafeNewSendNode, which the traversal engine does in exactly
// two places (root seeding and child discovery). Everything else in the
// codebase can treat a Node as owned by the current worker.
package dom

// OpaqueNode is a node identity usable as a map or set key. It carries no
// access to the node's data.
type OpaqueNode uint64

// Node is an opaque handle to a tree node.
//
// Implementations must make Opaque, Depth, Parent and ChildrenIter race-free
// under the traversal access discipline: a node is only ever touched by the
// worker currently processing it or discovering its children. Mutable state
// hangs off Data and is runtime-guarded by the GuardCell.
type Node interface {
	// Opaque returns the node's identity.
	Opaque() OpaqueNode

	// Depth returns the node's distance from the root.
	Depth() int

	// Parent returns the parent node, or nil for the root.
	Parent() Node

	// ChildrenIter calls fn for each child in document order.
	ChildrenIter(fn func(Node))

	// Data returns the node's guarded mutable record.
	Data() *GuardCell
}

// SendNode wraps a Node so it may cross a worker boundary.
//
// The wrapper carries no synchronization. Safety rests on the traversal
// invariant that a handed-off node is never re-entered by the worker that
// discovered it.
type SendNode struct {
	node Node
}

// UnsafeNewSendNode marks a node as transferable to another worker.
//
// Callers must guarantee the node's guarded data will not be accessed from
// the current worker while the wrapper is in transit. Keep construction
// sites few and easy to grep for.
func UnsafeNewSendNode(n Node) SendNode {
	return SendNode{node: n}
}

// Node unwraps the handle on the receiving worker.
func (s SendNode) Node() Node {
	return s.node
}
