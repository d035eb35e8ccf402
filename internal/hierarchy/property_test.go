package hierarchy

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// genPlots draws a collection of plots with ids 1..n whose parent links are
// arbitrary: missing parents, self parents and cycles all occur.
func genPlots(t *rapid.T) []domain.Plot {
	n := rapid.IntRange(0, 25).Draw(t, "n")
	plots := make([]domain.Plot, 0, n)
	for i := 1; i <= n; i++ {
		p := domain.Plot{ID: int64(i)}
		parent := rapid.IntRange(0, n+3).Draw(t, "parent")
		if parent > 0 {
			pid := int64(parent)
			p.ParentPlotID = &pid
		}
		plots = append(plots, p)
	}
	return plots
}

func TestProperty_BuildPlacesEveryPlotOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		plots := genPlots(t)

		counts := map[int64]int{}
		Walk(Build(plots), func(n *Node, _ int) bool {
			counts[n.ID]++
			return true
		})

		if len(counts) != len(plots) {
			t.Fatalf("forest has %d distinct plots, want %d", len(counts), len(plots))
		}
		for id, c := range counts {
			if c != 1 {
				t.Fatalf("plot %d appears %d times", id, c)
			}
		}
	})
}

func TestProperty_DescendantsWellFormed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		plots := genPlots(t)
		if len(plots) == 0 {
			return
		}
		id := rapid.Int64Range(1, int64(len(plots))).Draw(t, "id")

		seen := map[int64]bool{}
		for _, d := range Descendants(id, plots) {
			if d == id {
				t.Fatalf("descendants of %d include itself", id)
			}
			if seen[d] {
				t.Fatalf("descendant %d repeated", d)
			}
			if d < 1 || d > int64(len(plots)) {
				t.Fatalf("descendant %d is not in the collection", d)
			}
			seen[d] = true
		}
	})
}

func TestProperty_ToggleTwiceRestoresSelection(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		plots := genPlots(t)
		if len(plots) == 0 {
			return
		}
		id := rapid.Int64Range(1, int64(len(plots))).Draw(t, "id")
		picked := rapid.SliceOfDistinct(rapid.Int64Range(1, int64(len(plots))), func(v int64) int64 { return v }).Draw(t, "picked")

		// Keep the subtree of id either fully in or fully out of the start.
		scope := append([]int64{id}, Descendants(id, plots)...)
		inScope := map[int64]bool{}
		for _, s := range scope {
			inScope[s] = true
		}
		var start []int64
		for _, p := range picked {
			if !inScope[p] {
				start = append(start, p)
			}
		}
		if rapid.Bool().Draw(t, "full") {
			start = append(start, scope...)
		}
		sel := NewSelection(start...)

		once := Toggle(id, sel, plots)
		twice := Toggle(id, once, plots)
		if !twice.Equal(sel) {
			t.Fatalf("toggle(%d) twice: got %v, want %v", id, twice.IDs(), sel.IDs())
		}
	})
}

func TestProperty_DeselectKeepsUnrelated(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		plots := genPlots(t)
		if len(plots) == 0 {
			return
		}
		id := rapid.Int64Range(1, int64(len(plots))).Draw(t, "id")
		picked := rapid.SliceOfDistinct(rapid.Int64Range(1, int64(len(plots))), func(v int64) int64 { return v }).Draw(t, "picked")
		sel := NewSelection(append(picked, id)...)

		inScope := map[int64]bool{id: true}
		for _, d := range Descendants(id, plots) {
			inScope[d] = true
		}

		next := Toggle(id, sel, plots)
		for _, p := range sel.IDs() {
			if inScope[p] && next.Has(p) {
				t.Fatalf("plot %d should have been deselected", p)
			}
			if !inScope[p] && !next.Has(p) {
				t.Fatalf("unrelated plot %d was deselected", p)
			}
		}
	})
}
