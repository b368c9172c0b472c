package traversal

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/style-engine/pkg/dom"
	"github.com/style-engine/pkg/parallel"
)

// recordingStrategy records the global order in which nodes get their
// preorder step and the child count reported for each postorder step.
type recordingStrategy struct {
	shared *SharedContext

	mu         sync.Mutex
	seq        int
	order      map[dom.OpaqueNode]int
	duplicates int
	postCounts map[dom.OpaqueNode]int
	depthBad   int
}

func newRecordingStrategy(opts ...SharedOption) *recordingStrategy {
	return &recordingStrategy{
		shared:     NewSharedContext(opts...),
		order:      make(map[dom.OpaqueNode]int),
		postCounts: make(map[dom.OpaqueNode]int),
	}
}

func (r *recordingStrategy) Shared() *SharedContext { return r.shared }

func (r *recordingStrategy) PreTraverse(root dom.Node) PreTraverseToken {
	return NewPreTraverseToken(root != nil)
}

func (r *recordingStrategy) ProcessPreorder(data *PerLevelTraversalData,
	cx *Context, node dom.Node, discover func(dom.Node)) {

	r.mu.Lock()
	if _, seen := r.order[node.Opaque()]; seen {
		r.duplicates++
	}
	r.order[node.Opaque()] = r.seq
	r.seq++
	if data.Depth != node.Depth() {
		r.depthBad++
	}
	r.mu.Unlock()

	cx.ThreadLocal.Statistics.ElementsTraversed++
	node.ChildrenIter(discover)
}

func (r *recordingStrategy) HandlePostorder(cx *Context,
	root dom.OpaqueNode, node dom.Node, childCount int) {

	r.mu.Lock()
	r.postCounts[node.Opaque()] = childCount
	r.mu.Unlock()
	cx.ThreadLocal.Statistics.ChildrenDiscovered += uint64(childCount)
}

// buildWide returns a root with n leaf children.
func buildWide(n int) *dom.Element {
	root := dom.NewElement("ul", "")
	for i := 0; i < n; i++ {
		root.AppendChild(dom.NewElement("li", ""))
	}
	return root
}

// buildBalanced returns a tree where every node down to depth has branch
// children.
func buildBalanced(branch, depth int) *dom.Element {
	root := dom.NewElement("div", "")
	var grow func(e *dom.Element, level int)
	grow = func(e *dom.Element, level int) {
		if level >= depth {
			return
		}
		for i := 0; i < branch; i++ {
			grow(e.AppendChild(dom.NewElement("span", "")), level+1)
		}
	}
	grow(root, 0)
	return root
}

// buildChain returns a single path of n nodes.
func buildChain(n int) *dom.Element {
	root := dom.NewElement("div", "")
	cur := root
	for i := 1; i < n; i++ {
		cur = cur.AppendChild(dom.NewElement("p", ""))
	}
	return root
}

func countNodes(e *dom.Element) int {
	n := 1
	e.ChildrenIter(func(c dom.Node) {
		n += countNodes(c.(*dom.Element))
	})
	return n
}

// runTraversal drives a recording traversal over root on a fresh pool and
// returns the strategy and the pool's final metrics.
func runTraversal(t *testing.T, root *dom.Element, workers int, opts ...SharedOption) (*recordingStrategy, parallel.MetricsSnapshot) {
	t.Helper()
	strategy := newRecordingStrategy(opts...)
	token := strategy.PreTraverse(root)
	require.True(t, token.ShouldTraverse())

	pool := parallel.NewPool(workers)
	defer pool.Close()
	Traverse(strategy, root, token, pool)
	return strategy, pool.Metrics()
}

func TestTraverse_SingleRoot(t *testing.T) {
	root := dom.NewElement("div", "")
	strategy, metrics := runTraversal(t, root, 4)

	assert.Len(t, strategy.order, 1)
	assert.Equal(t, 0, strategy.postCounts[root.Opaque()])
	assert.Zero(t, strategy.duplicates)

	// A lone root is processed entirely on the scope's own task.
	assert.Equal(t, int64(0), metrics.TasksSpawned)
}

func TestTraverse_RootWithTwentyChildren(t *testing.T) {
	root := buildWide(20)
	strategy, metrics := runTraversal(t, root, 4)

	assert.Len(t, strategy.order, 21)
	assert.Equal(t, 20, strategy.postCounts[root.Opaque()])
	root.ChildrenIter(func(c dom.Node) {
		assert.Equal(t, 0, strategy.postCounts[c.Opaque()])
	})

	// 20 children split into one full chunk of 16 and a tail of 4, each
	// dispatched as its own task.
	assert.Equal(t, int64(2), metrics.TasksSpawned)
}

func TestTraverse_SpawnCountsByWidth(t *testing.T) {
	tests := []struct {
		children int
		spawns   int64
	}{
		{1, 0},
		{16, 0},  // fits one unit, tail dispatched
		{17, 2},  // 16 + 1
		{100, 7}, // ceil(100/16)
	}

	for _, tt := range tests {
		root := buildWide(tt.children)
		strategy, metrics := runTraversal(t, root, 1)
		assert.Len(t, strategy.order, tt.children+1)
		assert.Equal(t, tt.spawns, metrics.TasksSpawned, "children=%d", tt.children)
	}
}

func TestTraverse_ParentBeforeChild(t *testing.T) {
	root := buildBalanced(3, 6)
	strategy, _ := runTraversal(t, root, 8)

	var check func(e *dom.Element)
	check = func(e *dom.Element) {
		parentOrder, ok := strategy.order[e.Opaque()]
		require.True(t, ok)
		e.ChildrenIter(func(c dom.Node) {
			childOrder, ok := strategy.order[c.Opaque()]
			require.True(t, ok)
			assert.Greater(t, childOrder, parentOrder)
			check(c.(*dom.Element))
		})
	}
	check(root)
}

func TestTraverse_Completeness(t *testing.T) {
	shapes := map[string]*dom.Element{
		"chain-of-1":    buildChain(1),
		"chain-of-400":  buildChain(400),
		"wide-1000":     buildWide(1000),
		"balanced-17x2": buildBalanced(17, 2),
		"balanced-4x5":  buildBalanced(4, 5),
	}

	for name, root := range shapes {
		want := countNodes(root)
		for _, workers := range []int{1, 4} {
			strategy, _ := runTraversal(t, root, workers)
			assert.Len(t, strategy.order, want, "%s workers=%d", name, workers)
			assert.Zero(t, strategy.duplicates, "%s workers=%d", name, workers)
			assert.Len(t, strategy.postCounts, want, "%s workers=%d", name, workers)
		}
	}
}

func TestTraverse_PostorderCountsMatchTree(t *testing.T) {
	root := buildBalanced(5, 3)
	strategy, _ := runTraversal(t, root, 4)

	var check func(e *dom.Element)
	check = func(e *dom.Element) {
		assert.Equal(t, e.NumChildren(), strategy.postCounts[e.Opaque()])
		e.ChildrenIter(func(c dom.Node) { check(c.(*dom.Element)) })
	}
	check(root)
}

func TestTraverse_DepthTracksLevels(t *testing.T) {
	// PerLevelTraversalData.Depth must equal the tree depth of every node
	// in the unit it is handed with.
	strategy, _ := runTraversal(t, buildBalanced(4, 4), 4)
	assert.Zero(t, strategy.depthBad)

	strategy, _ = runTraversal(t, buildChain(300), 2)
	assert.Zero(t, strategy.depthBad)
}

func TestTraverse_RecursionCeilingResets(t *testing.T) {
	// A chain far longer than the ceiling forces tail dispatch to downgrade
	// to spawning; the traversal must still visit every node exactly once.
	opts := Options{WorkUnitMax: 4, RecursionDepthLimit: 8}
	root := buildChain(500)
	strategy, metrics := runTraversal(t, root, 1, WithOptions(opts))

	assert.Len(t, strategy.order, 500)
	assert.Zero(t, strategy.duplicates)
	assert.Greater(t, metrics.TasksSpawned, int64(0))
}

func TestTraverse_CustomWorkUnitMax(t *testing.T) {
	opts := Options{WorkUnitMax: 4, RecursionDepthLimit: DefaultRecursionDepthLimit}
	root := buildWide(10)
	strategy, metrics := runTraversal(t, root, 1, WithOptions(opts))

	assert.Len(t, strategy.order, 11)
	// 10 children over unit size 4: three chunks.
	assert.Equal(t, int64(3), metrics.TasksSpawned)
}

func TestTraverse_StatisticsAggregate(t *testing.T) {
	root := buildBalanced(4, 4)
	want := uint64(countNodes(root))

	strategy := newRecordingStrategy()
	pool := parallel.NewPool(4)
	defer pool.Close()

	stats := Traverse(strategy, root, strategy.PreTraverse(root), pool)
	assert.Equal(t, want, stats.ElementsTraversed)
	assert.Equal(t, want-1, stats.ChildrenDiscovered)
	assert.Equal(t, 4, stats.Workers)
}

func TestTraverse_DumpStatisticsOutput(t *testing.T) {
	var buf bytes.Buffer
	root := buildWide(100)
	runTraversal(t, root, 2,
		WithDumpStatistics(),
		WithLargeTraversalMin(1),
		WithStatsOutput(&buf))

	out := buf.String()
	assert.Contains(t, out, "[PERF] traversal: parallel")
	assert.Contains(t, out, "elements_traversed,101")
}

func TestTraverse_SmallRunsNotReported(t *testing.T) {
	var buf bytes.Buffer
	runTraversal(t, buildWide(3), 2,
		WithDumpStatistics(),
		WithStatsOutput(&buf))
	assert.Empty(t, buf.String())
}

func TestTraverse_RejectedTokenPanics(t *testing.T) {
	strategy := newRecordingStrategy()
	pool := parallel.NewPool(2)
	defer pool.Close()

	assert.PanicsWithValue(t, "traversal: pre-traverse token does not permit traversal", func() {
		Traverse(strategy, dom.NewElement("div", ""), NewPreTraverseToken(false), pool)
	})
}
