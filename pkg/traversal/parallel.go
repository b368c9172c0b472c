package traversal

import (
	"fmt"

	"github.com/style-engine/pkg/collections"
	"github.com/style-engine/pkg/dom"
	"github.com/style-engine/pkg/parallel"
)

// DispatchMode controls whether a dispatch may continue on the current call
// stack or must be handed to the scheduler as a new task.
type DispatchMode int

const (
	// TailCall allows the dispatch to recurse on the current stack.
	TailCall DispatchMode = iota
	// NotTailCall forces the dispatch to spawn.
	NotTailCall
)

func (m DispatchMode) isTailCall() bool { return m == TailCall }

// discoveredPool amortizes the scratch buffers that collect the combined
// children of a work unit. Sized for a full unit of nodes each producing a
// handful of children.
var discoveredPool = collections.NewSlicePool[dom.SendNode](128)

func assertInvariant(cond bool, msg string) {
	if !cond {
		panic("traversal: " + msg)
	}
}

// Traverse runs a complete parallel top-down traversal from root and
// returns once every reachable node has been processed. The caller must
// have obtained a permitting token from strategy.PreTraverse.
//
// The per-worker accumulators are merged after the scope joins and the
// aggregate is returned. When the shared context enables statistics
// dumping, the report is also written if the traversal qualifies as large.
func Traverse(strategy Strategy, root dom.Node, token PreTraverseToken, pool *parallel.Pool) *Statistics {
	assertInvariant(token.ShouldTraverse(), "pre-traverse token does not permit traversal")

	shared := strategy.Shared()
	start := shared.clock.Now()

	tls := NewScopedTLS(shared, pool.Workers())
	sendRoot := dom.UnsafeNewSendNode(root)
	data := PerLevelTraversalData{Depth: root.Depth()}

	pool.Scope(func(scope *parallel.Scope, w *parallel.Worker) {
		rootOpaque := sendRoot.Node().Opaque()
		traverseNodes([]dom.SendNode{sendRoot}, TailCall, 0, rootOpaque, data, scope, w, strategy, tls)
	})

	aggregate := &Statistics{}
	for _, slot := range tls.Slots() {
		if slot != nil {
			aggregate.Merge(&slot.Statistics)
		}
	}
	aggregate.Finish(shared.clock.Since(start), pool.Workers())
	if shared.DumpStatistics() && aggregate.IsLarge(shared.largeTraversalMin) {
		fmt.Fprintln(shared.statsOut, aggregate.String())
	}
	return aggregate
}

// traverseNodes ensures every node in nodes gets processed in a future work
// unit. Oversized lists are split into unit-sized chunks that spawn
// unconditionally; a list that fits in one unit is tail-called when the
// mode allows it, the recursion ceiling has not been hit, and the current
// worker has no other queued work (tail-calling past queued work would
// break breadth-first ordering).
func traverseNodes(nodes []dom.SendNode, mode DispatchMode, recursionDepth int,
	root dom.OpaqueNode, data PerLevelTraversalData,
	scope *parallel.Scope, w *parallel.Worker, strategy Strategy, tls *ScopedTLS) {

	assertInvariant(len(nodes) > 0, "dispatch of empty node list")
	opts := strategy.Shared().Options()
	assertInvariant(recursionDepth <= opts.RecursionDepthLimit, "recursion depth over limit")

	mayDispatchTail := mode.isTailCall() &&
		recursionDepth != opts.RecursionDepthLimit &&
		!w.HasPendingTasks()

	if len(nodes) <= opts.WorkUnitMax {
		// Copy into a fresh unit so the caller's scratch buffer can be
		// reused regardless of how the unit is dispatched.
		unit := make([]dom.SendNode, len(nodes))
		copy(unit, nodes)
		if mayDispatchTail {
			topDownDOM(unit, recursionDepth+1, root, data, scope, w, strategy, tls)
		} else {
			scope.Spawn(w, func(w2 *parallel.Worker) {
				topDownDOM(unit, 0, root, data, scope, w2, strategy, tls)
			})
		}
		return
	}

	for start := 0; start < len(nodes); start += opts.WorkUnitMax {
		end := start + opts.WorkUnitMax
		if end > len(nodes) {
			end = len(nodes)
		}
		unit := make([]dom.SendNode, end-start)
		copy(unit, nodes[start:end])
		dataCopy := data
		scope.Spawn(w, func(w2 *parallel.Worker) {
			topDownDOM(unit, 0, root, dataCopy, scope, w2, strategy, tls)
		})
	}
}

// topDownDOM processes one work unit on the current worker: preorder and
// postorder for each node in order, collecting discovered children into a
// shared scratch buffer for the whole unit.
//
// Children are kicked off as soon as a full unit of them has accumulated,
// checked at the top of the loop so the final batch can be dispatched as a
// tail call instead. That tail call is what lets a linear chain of
// single-child nodes stay on one worker with no scheduler overhead, while
// the mid-loop kick keeps wide trees from degrading to serial processing.
func topDownDOM(nodes []dom.SendNode, recursionDepth int,
	root dom.OpaqueNode, data PerLevelTraversalData,
	scope *parallel.Scope, w *parallel.Worker, strategy Strategy, tls *ScopedTLS) {

	opts := strategy.Shared().Options()
	assertInvariant(len(nodes) > 0, "empty work unit")
	assertInvariant(len(nodes) <= opts.WorkUnitMax, "oversized work unit")

	discovered := discoveredPool.Get()
	defer discoveredPool.Put(discovered)

	tlc := tls.Ensure(w.Index())
	cx := Context{Shared: strategy.Shared(), ThreadLocal: tlc}

	for _, sn := range nodes {
		if len(*discovered) >= opts.WorkUnitMax {
			dataCopy := data
			dataCopy.Depth++
			traverseNodes(*discovered, NotTailCall, recursionDepth, root, dataCopy, scope, w, strategy, tls)
			*discovered = (*discovered)[:0]
		}

		node := sn.Node()
		childCount := 0
		strategy.ProcessPreorder(&data, &cx, node, func(child dom.Node) {
			childCount++
			*discovered = append(*discovered, dom.UnsafeNewSendNode(child))
		})
		strategy.HandlePostorder(&cx, root, node, childCount)
	}

	if len(*discovered) > 0 {
		data.Depth++
		traverseNodes(*discovered, TailCall, recursionDepth, root, data, scope, w, strategy, tls)
	}
}
