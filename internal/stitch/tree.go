package stitch

import (
	"sort"
	"strings"
)

// treeNode is one row in the virtual presentation tree. The tree restores
// parent-child structure so sibling reordering cannot move a row under an
// unrelated parent (per-share items under Revenue, for example).
type treeNode struct {
	entry     *conceptEntry
	pos       float64
	origIndex int
	level     int
	depth     int
	children  []*treeNode
}

// buildPresentationTree walks entries in the reference filing's presentation
// order (entries without a reference slot follow, in position order) and
// admits each node under the nearest open ancestor that passes the
// hierarchical compatibility rules; incompatible nodes start new roots.
func buildPresentationTree(entries []*conceptEntry, positions map[string]float64) []*treeNode {
	ordered := append([]*conceptEntry{}, entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, oj := ordered[i].refOrder, ordered[j].refOrder
		switch {
		case oi >= 0 && oj >= 0:
			return oi < oj
		case oi >= 0:
			return true
		case oj >= 0:
			return false
		default:
			return positions[ordered[i].concept] < positions[ordered[j].concept]
		}
	})

	var roots []*treeNode
	var stack []*treeNode
	for i, e := range ordered {
		node := &treeNode{
			entry:     e,
			pos:       positions[e.concept],
			origIndex: i,
			level:     e.level,
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= node.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && compatible(stack[len(stack)-1], node) {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, node)
		} else {
			stack = stack[:0]
			roots = append(roots, node)
		}
		stack = append(stack, node)
	}

	sortSiblings(roots)
	return roots
}

// compatible applies the hierarchical admission rules between a candidate
// parent and child, based on template positions and label guards.
func compatible(parent, child *treeNode) bool {
	p, c := parent.pos, child.pos

	if p < 900 && c < 900 && absF(p-c) > 200 {
		return false
	}
	// Per-share rows never nest under anything outside their own section.
	if c >= 900 && p < 800 {
		return false
	}
	// Non-operating items never nest under operating sections.
	if c >= 500 && c < 600 && p < 500 {
		return false
	}
	// Revenue never parents per-share rows.
	if p < 100 && c >= 900 {
		return false
	}

	if looksPerShare(child.entry.label) && !looksPerShare(parent.entry.label) {
		return false
	}
	if strings.Contains(strings.ToLower(child.entry.label), "interest expense") &&
		!strings.Contains(strings.ToLower(parent.entry.label), "interest") {
		return false
	}
	return true
}

func sortSiblings(nodes []*treeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].pos != nodes[j].pos {
			return nodes[i].pos < nodes[j].pos
		}
		return nodes[i].origIndex < nodes[j].origIndex
	})
	for _, n := range nodes {
		sortSiblings(n.children)
	}
}

// flattenTree emits the rows depth-first, stamping display depth.
func flattenTree(roots []*treeNode) []*treeNode {
	var out []*treeNode
	var walk func(n *treeNode, depth int)
	walk = func(n *treeNode, depth int) {
		n.depth = depth
		out = append(out, n)
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	return out
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
