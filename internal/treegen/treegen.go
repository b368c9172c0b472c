// Package treegen builds synthetic element trees for benchmarks and tests.
package treegen

import (
	"math/rand"

	"github.com/style-engine/pkg/dom"
)

var tags = []string{"div", "span", "p", "a", "ul", "li", "em"}
var classes = []string{"", "small", "wide", ""}

// Balanced builds a tree where every node down to the given depth has
// branch children. Depth 0 is a lone root.
func Balanced(branch, depth int) *dom.Element {
	root := dom.NewElement("div", "")
	grow(root, branch, depth, 0)
	return root
}

func grow(e *dom.Element, branch, depth, level int) {
	if level >= depth {
		return
	}
	for i := 0; i < branch; i++ {
		child := dom.NewElement(tags[i%len(tags)], classes[i%len(classes)])
		e.AppendChild(child)
		grow(child, branch, depth, level+1)
	}
}

// Wide builds a root with n leaf children.
func Wide(n int) *dom.Element {
	root := dom.NewElement("ul", "")
	for i := 0; i < n; i++ {
		root.AppendChild(dom.NewElement("li", classes[i%len(classes)]))
	}
	return root
}

// Chain builds a linear chain of n nodes (root included), each node having
// exactly one child.
func Chain(n int) *dom.Element {
	root := dom.NewElement("div", "")
	cur := root
	for i := 1; i < n; i++ {
		cur = cur.AppendChild(dom.NewElement(tags[i%len(tags)], ""))
	}
	return root
}

// Random builds a tree of exactly n nodes with a seeded shape: each new
// node attaches to a uniformly random existing node.
func Random(n int, seed int64) *dom.Element {
	rng := rand.New(rand.NewSource(seed))
	root := dom.NewElement("div", "")
	all := []*dom.Element{root}
	for i := 1; i < n; i++ {
		parent := all[rng.Intn(len(all))]
		child := dom.NewElement(tags[rng.Intn(len(tags))], classes[rng.Intn(len(classes))])
		parent.AppendChild(child)
		all = append(all, child)
	}
	return root
}

// Count returns the number of nodes in the tree rooted at e.
func Count(e *dom.Element) int {
	n := 1
	e.ChildrenIter(func(c dom.Node) {
		n += Count(c.(*dom.Element))
	})
	return n
}
