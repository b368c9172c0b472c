// Package traversal implements a parallel, breadth-first, top-down
// traversal over a DOM-like tree, computing a style for every node while
// guaranteeing no node is processed before its parent.
//
// The traversal batches nodes into bounded work units for cache locality,
// continues on the current stack when that is safe (tail dispatch), and
// hands everything else to a work-stealing pool inside one scoped task
// group. Node handles cross worker boundaries only through dom.SendNode;
// construction of that wrapper is confined to this package.
package traversal

import (
	"io"
	"os"

	"github.com/style-engine/pkg/dom"
	"github.com/style-engine/pkg/utils"
)

// ============================================================================
// Engine Options
// ============================================================================

// DefaultWorkUnitMax is the default cap on nodes processed as a single
// unit. Larger values improve sibling and cousin style sharing and tree
// locality at the expense of parallelism opportunity.
const DefaultWorkUnitMax = 16

// DefaultRecursionDepthLimit bounds consecutive tail dispatches on one call
// stack. Reaching the limit downgrades tail dispatch to spawning; it is not
// an error path.
const DefaultRecursionDepthLimit = 150

// Options holds the engine tuning parameters. The defaults are empirically
// tuned values; validate any override against the target environment.
type Options struct {
	// WorkUnitMax is the maximum number of nodes in one work unit.
	WorkUnitMax int

	// RecursionDepthLimit is the ceiling on chained tail dispatches.
	RecursionDepthLimit int
}

// normalize replaces out-of-range values with the defaults.
func (o Options) normalize() Options {
	if o.WorkUnitMax <= 0 {
		o.WorkUnitMax = DefaultWorkUnitMax
	}
	if o.RecursionDepthLimit <= 0 {
		o.RecursionDepthLimit = DefaultRecursionDepthLimit
	}
	return o
}

// ============================================================================
// Shared Context
// ============================================================================

// SharedContext is the read-only context shared by every worker for the
// duration of one traversal.
type SharedContext struct {
	opts              Options
	dumpStatistics    bool
	largeTraversalMin uint64
	clock             utils.Clock
	statsOut          io.Writer
}

// SharedOption configures a SharedContext.
type SharedOption func(*SharedContext)

// WithOptions sets the engine tuning parameters.
func WithOptions(o Options) SharedOption {
	return func(c *SharedContext) { c.opts = o }
}

// WithDumpStatistics enables per-traversal statistics aggregation.
func WithDumpStatistics() SharedOption {
	return func(c *SharedContext) { c.dumpStatistics = true }
}

// WithLargeTraversalMin sets the element count at or above which an
// aggregated traversal is considered large enough to report.
func WithLargeTraversalMin(n uint64) SharedOption {
	return func(c *SharedContext) { c.largeTraversalMin = n }
}

// WithClock sets the clock used for elapsed-time stamping.
func WithClock(clock utils.Clock) SharedOption {
	return func(c *SharedContext) { c.clock = clock }
}

// WithStatsOutput sets the destination for the statistics report.
func WithStatsOutput(w io.Writer) SharedOption {
	return func(c *SharedContext) { c.statsOut = w }
}

// NewSharedContext creates a SharedContext with defaults applied.
func NewSharedContext(opts ...SharedOption) *SharedContext {
	c := &SharedContext{
		opts:              Options{}.normalize(),
		largeTraversalMin: DefaultLargeTraversalMin,
		clock:             utils.NewRealClock(),
		statsOut:          os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.opts = c.opts.normalize()
	return c
}

// Options returns the normalized engine parameters.
func (c *SharedContext) Options() Options { return c.opts }

// DumpStatistics reports whether statistics aggregation is enabled.
func (c *SharedContext) DumpStatistics() bool { return c.dumpStatistics }

// ============================================================================
// Strategy Contract
// ============================================================================

// PreTraverseToken is the result of the pre-traversal check. The engine
// requires a token that permits traversal.
type PreTraverseToken struct {
	traverse bool
}

// NewPreTraverseToken creates a token.
func NewPreTraverseToken(shouldTraverse bool) PreTraverseToken {
	return PreTraverseToken{traverse: shouldTraverse}
}

// ShouldTraverse reports whether the traversal should run.
func (t PreTraverseToken) ShouldTraverse() bool { return t.traverse }

// PerLevelTraversalData carries the tree depth of the work unit being
// processed. It is copied, not shared, when a new level is spawned.
type PerLevelTraversalData struct {
	Depth int
}

// Strategy supplies the per-node computation. Implementations are called
// concurrently from multiple workers but each call receives a node no other
// worker is touching.
type Strategy interface {
	// Shared returns the read-only shared context.
	Shared() *SharedContext

	// PreTraverse decides whether a traversal from root should run.
	PreTraverse(root dom.Node) PreTraverseToken

	// ProcessPreorder computes the node's style and reports each of the
	// node's children through discover. Guarded borrows of node data must
	// not outlive the call.
	ProcessPreorder(data *PerLevelTraversalData, cx *Context, node dom.Node, discover func(child dom.Node))

	// HandlePostorder finalizes the node once its children are counted.
	// childCount is exactly the number of discover calls made for node.
	HandlePostorder(cx *Context, root dom.OpaqueNode, node dom.Node, childCount int)
}
