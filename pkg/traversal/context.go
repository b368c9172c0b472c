package traversal

import "github.com/style-engine/pkg/dom"

// sharingCacheSize is the number of recently computed styles each worker
// keeps for sibling/cousin sharing.
const sharingCacheSize = 31

// ============================================================================
// Style Sharing Cache
// ============================================================================

type sharingEntry struct {
	hash  uint64
	style dom.ComputedStyle
}

// StyleSharingCache is a small per-worker ring of recently computed styles
// keyed by style-input hash. Batching siblings and cousins onto one worker
// is what makes this cache effective.
type StyleSharingCache struct {
	entries [sharingCacheSize]sharingEntry
	n       int
	next    int
}

// Lookup returns the cached style for hash, if present.
func (c *StyleSharingCache) Lookup(hash uint64) (dom.ComputedStyle, bool) {
	for i := 0; i < c.n; i++ {
		if c.entries[i].hash == hash {
			return c.entries[i].style, true
		}
	}
	return dom.ComputedStyle{}, false
}

// Insert records a computed style, evicting the oldest entry when full.
func (c *StyleSharingCache) Insert(hash uint64, style dom.ComputedStyle) {
	c.entries[c.next] = sharingEntry{hash: hash, style: style}
	c.next = (c.next + 1) % sharingCacheSize
	if c.n < sharingCacheSize {
		c.n++
	}
}

// Len returns the number of cached styles.
func (c *StyleSharingCache) Len() int { return c.n }

// ============================================================================
// Thread-Local Context
// ============================================================================

// ThreadLocalContext is the scratch state owned by one worker for the
// duration of a traversal: the style sharing cache and the worker's share
// of the traversal statistics. It is created lazily on the worker's first
// work unit and read back by the driver only after the scope has joined.
type ThreadLocalContext struct {
	SharingCache StyleSharingCache
	Statistics   Statistics
}

// NewThreadLocalContext creates an empty thread-local context.
func NewThreadLocalContext(shared *SharedContext) *ThreadLocalContext {
	_ = shared
	return &ThreadLocalContext{}
}

// Context combines the shared read-only context with the calling worker's
// thread-local state for the duration of one work unit.
type Context struct {
	Shared      *SharedContext
	ThreadLocal *ThreadLocalContext
}

// ============================================================================
// Scoped TLS
// ============================================================================

// ScopedTLS is the per-traversal slot table of thread-local contexts, one
// slot per pool worker. A slot is only ever touched by its owning worker
// while the traversal runs, so no locking is needed; Slots must not be
// called until the traversal's scope has fully joined.
type ScopedTLS struct {
	shared *SharedContext
	slots  []*ThreadLocalContext
}

// NewScopedTLS creates a slot table for a pool with workers slots.
func NewScopedTLS(shared *SharedContext, workers int) *ScopedTLS {
	return &ScopedTLS{
		shared: shared,
		slots:  make([]*ThreadLocalContext, workers),
	}
}

// Ensure returns the context slot for worker index, creating it on first
// touch.
func (t *ScopedTLS) Ensure(index int) *ThreadLocalContext {
	if t.slots[index] == nil {
		t.slots[index] = NewThreadLocalContext(t.shared)
	}
	return t.slots[index]
}

// Slots returns the slot table for post-join aggregation. Unused slots are
// nil.
func (t *ScopedTLS) Slots() []*ThreadLocalContext {
	return t.slots
}
