package hierarchy

import "github.com/DukeRupert/turfplot/internal/domain"

// Node is a plot with its ordered children.
type Node struct {
	domain.Plot
	Children []*Node `json:"children"`
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Build arranges plots into a forest and returns the roots.
//
// A plot whose parent is present in the input is appended to that parent's
// children; every other plot (no parent, unknown parent, or itself as parent)
// is a root. Roots and children keep input order. Plots caught in a parent
// cycle that no root reaches are promoted to roots in input order, breaking
// the cycle at the promoted plot, so each plot appears exactly once.
func Build(plots []domain.Plot) []*Node {
	roots := []*Node{}
	if len(plots) == 0 {
		return roots
	}

	idx := newIndex(plots)
	nodes := make(map[int64]*Node, len(plots))
	for _, p := range plots {
		if _, dup := nodes[p.ID]; dup {
			continue
		}
		nodes[p.ID] = &Node{Plot: p, Children: []*Node{}}
	}

	placed := make(map[int64]bool, len(plots))
	for _, p := range plots {
		if placed[p.ID] {
			continue
		}
		placed[p.ID] = true
		node := nodes[p.ID]
		if parent, ok := idx.parentOf(plots, p.ID); ok {
			nodes[parent].Children = append(nodes[parent].Children, node)
			continue
		}
		roots = append(roots, node)
	}

	reached := make(map[int64]bool, len(plots))
	for _, r := range roots {
		mark(r, reached)
	}
	if len(reached) == len(nodes) {
		return roots
	}

	for _, p := range plots {
		if reached[p.ID] {
			continue
		}
		node := nodes[p.ID]
		if parent, ok := idx.parentOf(plots, p.ID); ok {
			nodes[parent].Children = detach(nodes[parent].Children, p.ID)
		}
		roots = append(roots, node)
		mark(node, reached)
	}
	return roots
}

// mark records every node reachable from n.
func mark(n *Node, reached map[int64]bool) {
	if reached[n.ID] {
		return
	}
	reached[n.ID] = true
	for _, c := range n.Children {
		mark(c, reached)
	}
}

func detach(children []*Node, id int64) []*Node {
	out := children[:0]
	for _, c := range children {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits the forest depth-first in display order. Returning false from
// fn skips the node's children.
func Walk(roots []*Node, fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range roots {
		visit(r, 0)
	}
}

// FlatNode is a plot positioned in display order.
type FlatNode struct {
	Plot  domain.Plot
	Depth int
}

// Flatten lists the forest depth-first with each plot's depth.
func Flatten(roots []*Node) []FlatNode {
	var out []FlatNode
	Walk(roots, func(n *Node, depth int) bool {
		out = append(out, FlatNode{Plot: n.Plot, Depth: depth})
		return true
	})
	return out
}

// Count returns the number of nodes in the forest.
func Count(roots []*Node) int {
	n := 0
	Walk(roots, func(*Node, int) bool {
		n++
		return true
	})
	return n
}
