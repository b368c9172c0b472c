// Package styler implements the style computation strategy driven by the
// parallel traversal engine: each node's computed style is derived from its
// parent's style and the node's own inputs, with a per-worker sharing cache
// so siblings and cousins with identical inputs reuse one computation.
package styler

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/style-engine/pkg/dom"
	"github.com/style-engine/pkg/traversal"
)

// rootFontSize is the font size applied when a node has no parent.
const rootFontSize = 16.0

// StyleStrategy computes styles for dom.Element trees. It is safe for
// concurrent use by the traversal engine: all mutable state lives in the
// per-worker thread-local context and in the guarded node records.
type StyleStrategy struct {
	shared *traversal.SharedContext
}

// New creates a StyleStrategy bound to shared.
func New(shared *traversal.SharedContext) *StyleStrategy {
	return &StyleStrategy{shared: shared}
}

// Shared implements traversal.Strategy.
func (s *StyleStrategy) Shared() *traversal.SharedContext {
	return s.shared
}

// PreTraverse implements traversal.Strategy.
func (s *StyleStrategy) PreTraverse(root dom.Node) traversal.PreTraverseToken {
	return traversal.NewPreTraverseToken(root != nil)
}

// ProcessPreorder styles node from its parent's style and reports the
// node's children. The parent's style is always available here: the engine
// never processes a node before its parent's preorder step has completed.
func (s *StyleStrategy) ProcessPreorder(data *traversal.PerLevelTraversalData,
	cx *traversal.Context, node dom.Node, discover func(dom.Node)) {

	parentStyle := defaultStyle()
	if parent := node.Parent(); parent != nil {
		pd, release := parent.Data().Borrow()
		parentStyle = pd.Style
		release()
	}

	el, ok := node.(*dom.Element)
	if !ok {
		panic("styler: node is not an element")
	}

	hash := styleInputHash(el.Tag, el.Class, parentStyle.Hash)
	tlc := cx.ThreadLocal
	style, shared := tlc.SharingCache.Lookup(hash)
	if shared {
		tlc.Statistics.StylesShared++
	} else {
		style = computeStyle(el, parentStyle, hash)
		tlc.SharingCache.Insert(hash, style)
		tlc.Statistics.ElementsStyled++
	}

	nd, release := node.Data().BorrowMut()
	nd.Style = style
	nd.Styled = true
	release()

	tlc.Statistics.ElementsTraversed++
	node.ChildrenIter(discover)
}

// HandlePostorder records the discovered-child count on the node. Nodes
// that turned out to be leaves need no reconciliation, which is why the
// engine hands us the exact count.
func (s *StyleStrategy) HandlePostorder(cx *traversal.Context,
	root dom.OpaqueNode, node dom.Node, childCount int) {

	if childCount == 0 {
		return
	}
	nd, release := node.Data().BorrowMut()
	nd.ChildCount = childCount
	release()
	cx.ThreadLocal.Statistics.ChildrenDiscovered += uint64(childCount)
}

// defaultStyle is the style of a parentless node.
func defaultStyle() dom.ComputedStyle {
	return dom.ComputedStyle{
		Color:    0x000000,
		FontSize: rootFontSize,
		Display:  "block",
	}
}

// styleInputHash identifies the inputs to a node's style computation. Two
// nodes with equal hashes compute identical styles, which is what makes
// cache sharing sound.
func styleInputHash(tag, class string, parentHash uint64) uint64 {
	h := fnv.New64a()
	h.Write([]byte(tag))
	h.Write([]byte{0})
	h.Write([]byte(class))
	h.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], parentHash)
	h.Write(buf[:])
	return h.Sum64()
}

// computeStyle derives an element's style from its parent's.
func computeStyle(el *dom.Element, parent dom.ComputedStyle, hash uint64) dom.ComputedStyle {
	style := dom.ComputedStyle{
		Color:    uint32(hash & 0xffffff),
		FontSize: parent.FontSize,
		Display:  displayFor(el.Tag),
		Hash:     hash,
	}
	if el.Class == "small" {
		style.FontSize = parent.FontSize * 0.75
	}
	return style
}

func displayFor(tag string) string {
	switch tag {
	case "span", "a", "b", "em", "i":
		return "inline"
	default:
		return "block"
	}
}
