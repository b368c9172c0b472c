package traversal

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLargeTraversalMin is the element count at or above which a
// traversal is reported when statistics dumping is enabled.
const DefaultLargeTraversalMin = 50

// Statistics accumulates per-worker traversal counters. Each worker owns
// one instance inside its ThreadLocalContext; the driver merges them after
// the scope joins and stamps the summary fields with Finish.
type Statistics struct {
	ElementsTraversed  uint64
	ElementsStyled     uint64
	StylesShared       uint64
	ChildrenDiscovered uint64

	// Summary fields, set by Finish on the merged aggregate only.
	TraversalTime time.Duration
	Workers       int
}

// Merge folds other into s. The operation is associative and commutative
// over the counter fields. Neither side may already be finished.
func (s *Statistics) Merge(other *Statistics) {
	if s.TraversalTime != 0 || other.TraversalTime != 0 {
		panic("traversal: merging finished statistics")
	}
	s.ElementsTraversed += other.ElementsTraversed
	s.ElementsStyled += other.ElementsStyled
	s.StylesShared += other.StylesShared
	s.ChildrenDiscovered += other.ChildrenDiscovered
}

// Finish stamps the aggregate with the elapsed wall time and worker count.
func (s *Statistics) Finish(elapsed time.Duration, workers int) {
	s.TraversalTime = elapsed
	s.Workers = workers
}

// IsLarge reports whether the traversal visited at least min elements.
func (s *Statistics) IsLarge(min uint64) bool {
	return s.ElementsTraversed >= min
}

// String renders the aggregate as a human-readable report.
func (s *Statistics) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[PERF] traversal: parallel (%d workers)\n", s.Workers)
	fmt.Fprintf(&b, "[PERF],elements_traversed,%d\n", s.ElementsTraversed)
	fmt.Fprintf(&b, "[PERF],elements_styled,%d\n", s.ElementsStyled)
	fmt.Fprintf(&b, "[PERF],styles_shared,%d\n", s.StylesShared)
	fmt.Fprintf(&b, "[PERF],children_discovered,%d\n", s.ChildrenDiscovered)
	fmt.Fprintf(&b, "[PERF],traversal_time_ms,%.3f", float64(s.TraversalTime)/float64(time.Millisecond))
	return b.String()
}
