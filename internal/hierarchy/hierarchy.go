// Package hierarchy turns flat plot records into a forest and resolves
// treatment scope over it.
//
// Every function here is pure: it reads a snapshot of plots and returns new
// values. Stale ids are tolerated, orphaned plots become roots, and parent
// cycles never cause infinite traversal.
package hierarchy

import (
	"errors"
	"strings"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// Errors returned by ValidateParent.
var (
	ErrSelfParent     = errors.New("a plot cannot be its own parent")
	ErrCircularParent = errors.New("the selected parent is a sub-plot of this plot")
)

// =============================================================================
// Index
// =============================================================================

// index is a lookup view over a plot slice.
type index struct {
	byID     map[int64]int     // plot id -> position in input
	children map[int64][]int64 // parent id -> child ids in input order
}

func newIndex(plots []domain.Plot) *index {
	idx := &index{
		byID:     make(map[int64]int, len(plots)),
		children: make(map[int64][]int64),
	}
	for i, p := range plots {
		if _, dup := idx.byID[p.ID]; !dup {
			idx.byID[p.ID] = i
		}
	}
	// Repeated ids keep their first record.
	for i, p := range plots {
		if idx.byID[p.ID] != i || p.ParentPlotID == nil || *p.ParentPlotID == p.ID {
			continue
		}
		idx.children[*p.ParentPlotID] = append(idx.children[*p.ParentPlotID], p.ID)
	}
	return idx
}

// parentOf returns the parent id if that parent is present in the snapshot.
func (idx *index) parentOf(plots []domain.Plot, id int64) (int64, bool) {
	pos, ok := idx.byID[id]
	if !ok {
		return 0, false
	}
	parent := plots[pos].ParentPlotID
	if parent == nil || *parent == id {
		return 0, false
	}
	if _, ok := idx.byID[*parent]; !ok {
		return 0, false
	}
	return *parent, true
}

// =============================================================================
// Descendants
// =============================================================================

// Descendants returns the ids of every plot whose parent chain leads to
// plotID, in breadth-first discovery order. The result never contains plotID
// itself and has no duplicates. An unknown id or a leaf yields an empty slice.
func Descendants(plotID int64, plots []domain.Plot) []int64 {
	return newIndex(plots).descendants(plotID)
}

func (idx *index) descendants(plotID int64) []int64 {
	out := []int64{}
	seen := map[int64]bool{plotID: true}
	queue := []int64{plotID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range idx.children[current] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// ExpandScope closes a set of plot ids under the descendant relation. The
// result keeps the first-seen order: each requested id followed by its
// descendants.
func ExpandScope(plotIDs []int64, plots []domain.Plot) []int64 {
	idx := newIndex(plots)
	seen := make(map[int64]bool, len(plotIDs))
	out := make([]int64, 0, len(plotIDs))

	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range plotIDs {
		add(id)
		for _, d := range idx.descendants(id) {
			add(d)
		}
	}
	return out
}

// =============================================================================
// Ancestors
// =============================================================================

// Ancestors returns the parent chain of plotID, root first and immediate
// parent last. The walk stops at a missing parent or on revisiting a plot.
func Ancestors(plotID int64, plots []domain.Plot) []domain.Plot {
	idx := newIndex(plots)
	var chain []domain.Plot
	seen := map[int64]bool{plotID: true}

	current := plotID
	for {
		parent, ok := idx.parentOf(plots, current)
		if !ok || seen[parent] {
			break
		}
		seen[parent] = true
		chain = append(chain, plots[idx.byID[parent]])
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Path returns the chain from the root down to plotID inclusive. An unknown
// id yields nil.
func Path(plotID int64, plots []domain.Plot) []domain.Plot {
	pos, ok := newIndex(plots).byID[plotID]
	if !ok {
		return nil
	}
	return append(Ancestors(plotID, plots), plots[pos])
}

// Display renders the path to plotID as "Root > Child > Plot". An unknown
// id renders as the empty string.
func Display(plotID int64, plots []domain.Plot) string {
	path := Path(plotID, plots)
	names := make([]string, 0, len(path))
	for _, p := range path {
		names = append(names, p.Name)
	}
	return strings.Join(names, " > ")
}

// ValidateParent checks that assigning parentID to plotID keeps the forest
// acyclic: the parent may not be the plot itself nor one of its descendants.
// Plots absent from the snapshot are not checked.
func ValidateParent(plotID, parentID int64, plots []domain.Plot) error {
	if plotID == parentID {
		return ErrSelfParent
	}
	idx := newIndex(plots)
	seen := map[int64]bool{}
	current := parentID
	for {
		if current == plotID {
			return ErrCircularParent
		}
		if seen[current] {
			return nil
		}
		seen[current] = true
		pos, ok := idx.byID[current]
		if !ok || plots[pos].ParentPlotID == nil {
			return nil
		}
		current = *plots[pos].ParentPlotID
	}
}
