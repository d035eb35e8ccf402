package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/domain"
)

func ptr(v int64) *int64 { return &v }

func plot(id int64, parent *int64, name string) domain.Plot {
	return domain.Plot{ID: id, ParentPlotID: parent, Name: name}
}

// chain builds 1 <- 2 <- 3.
func chain() []domain.Plot {
	return []domain.Plot{
		plot(1, nil, "North Field"),
		plot(2, ptr(1), "Block A"),
		plot(3, ptr(2), "Row 1"),
	}
}

func ids(nodes []*Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// =============================================================================
// Build
// =============================================================================

func TestBuild_Empty(t *testing.T) {
	roots := Build(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestBuild_Chain(t *testing.T) {
	roots := Build(chain())

	require.Len(t, roots, 1)
	assert.Equal(t, int64(1), roots[0].ID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, int64(2), roots[0].Children[0].ID)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, int64(3), roots[0].Children[0].Children[0].ID)
	assert.False(t, roots[0].Children[0].Children[0].HasChildren())
}

func TestBuild_OrphanBecomesRoot(t *testing.T) {
	plots := []domain.Plot{
		plot(1, nil, "North Field"),
		plot(5, ptr(999), "Stray"),
	}

	roots := Build(plots)
	assert.Equal(t, []int64{1, 5}, ids(roots))
}

func TestBuild_PreservesInputOrder(t *testing.T) {
	plots := []domain.Plot{
		plot(9, ptr(1), "C"),
		plot(4, nil, "Z root"),
		plot(1, nil, "A root"),
		plot(7, ptr(1), "B"),
	}

	roots := Build(plots)
	assert.Equal(t, []int64{4, 1}, ids(roots))
	assert.Equal(t, []int64{9, 7}, ids(roots[1].Children))
}

func TestBuild_ChildListedBeforeParent(t *testing.T) {
	plots := []domain.Plot{
		plot(3, ptr(2), "Row 1"),
		plot(2, ptr(1), "Block A"),
		plot(1, nil, "North Field"),
	}

	roots := Build(plots)
	require.Len(t, roots, 1)
	assert.Equal(t, 3, Count(roots))
}

func TestBuild_SelfParentIsRoot(t *testing.T) {
	roots := Build([]domain.Plot{plot(1, ptr(1), "Loop")})
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0].Children)
}

func TestBuild_DuplicateIDKeepsFirstRecord(t *testing.T) {
	plots := []domain.Plot{
		plot(1, nil, "North Field"),
		plot(1, ptr(2), "North Field (stale)"),
		plot(2, nil, "South Field"),
	}

	roots := Build(plots)
	assert.Equal(t, []int64{1, 2}, ids(roots))
	assert.Equal(t, "North Field", roots[0].Name)
	assert.Empty(t, roots[1].Children)
	assert.Empty(t, Descendants(2, plots))
	assert.Empty(t, Ancestors(1, plots))
}

func TestBuild_CycleMembersPromoted(t *testing.T) {
	plots := []domain.Plot{
		plot(1, nil, "Root"),
		plot(2, ptr(3), "Cycle A"),
		plot(3, ptr(2), "Cycle B"),
		plot(4, ptr(3), "Below cycle"),
	}

	roots := Build(plots)
	assert.Equal(t, []int64{1, 2}, ids(roots))
	assert.Equal(t, 4, Count(roots))
	assert.Equal(t, []int64{3}, ids(roots[1].Children))
	assert.Equal(t, []int64{4}, ids(roots[1].Children[0].Children))
}

func TestFlatten_DepthOrder(t *testing.T) {
	plots := append(chain(), plot(4, nil, "South Field"))

	flat := Flatten(Build(plots))
	require.Len(t, flat, 4)

	var got []int64
	var depths []int
	for _, f := range flat {
		got = append(got, f.Plot.ID)
		depths = append(depths, f.Depth)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, got)
	assert.Equal(t, []int{0, 1, 2, 0}, depths)
}

func TestWalk_SkipChildren(t *testing.T) {
	var seen []int64
	Walk(Build(chain()), func(n *Node, depth int) bool {
		seen = append(seen, n.ID)
		return n.ID != 2
	})
	assert.Equal(t, []int64{1, 2}, seen)
}

// =============================================================================
// Descendants / ExpandScope
// =============================================================================

func TestDescendants(t *testing.T) {
	tests := []struct {
		name   string
		plotID int64
		plots  []domain.Plot
		want   []int64
	}{
		{"root of chain", 1, chain(), []int64{2, 3}},
		{"middle of chain", 2, chain(), []int64{3}},
		{"leaf", 3, chain(), []int64{}},
		{"unknown id", 42, chain(), []int64{}},
		{"empty collection", 1, nil, []int64{}},
		{
			name:   "breadth first",
			plotID: 1,
			plots: []domain.Plot{
				plot(1, nil, "root"),
				plot(2, ptr(1), "a"),
				plot(3, ptr(2), "a1"),
				plot(4, ptr(1), "b"),
			},
			want: []int64{2, 4, 3},
		},
		{
			name:   "cycle through start excludes start",
			plotID: 1,
			plots: []domain.Plot{
				plot(1, ptr(2), "a"),
				plot(2, ptr(1), "b"),
			},
			want: []int64{2},
		},
		{
			name:   "duplicate records deduplicated",
			plotID: 1,
			plots: []domain.Plot{
				plot(1, nil, "root"),
				plot(2, ptr(1), "a"),
				plot(2, ptr(1), "a again"),
			},
			want: []int64{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Descendants(tt.plotID, tt.plots))
		})
	}
}

func TestExpandScope(t *testing.T) {
	plots := append(chain(), plot(4, nil, "South Field"), plot(5, ptr(4), "Block S"))

	assert.Equal(t, []int64{2, 3, 4, 5}, ExpandScope([]int64{2, 4}, plots))
	assert.Equal(t, []int64{1, 2, 3}, ExpandScope([]int64{1, 3}, plots))
	assert.Equal(t, []int64{99}, ExpandScope([]int64{99}, plots))
	assert.Empty(t, ExpandScope(nil, plots))
}

// =============================================================================
// Ancestors / Display / ValidateParent
// =============================================================================

func TestAncestors(t *testing.T) {
	anc := Ancestors(3, chain())
	require.Len(t, anc, 2)
	assert.Equal(t, int64(1), anc[0].ID)
	assert.Equal(t, int64(2), anc[1].ID)

	assert.Empty(t, Ancestors(1, chain()))
	assert.Empty(t, Ancestors(42, chain()))
}

func TestAncestors_StopsOnCycle(t *testing.T) {
	plots := []domain.Plot{
		plot(1, ptr(2), "a"),
		plot(2, ptr(1), "b"),
	}
	anc := Ancestors(1, plots)
	require.Len(t, anc, 1)
	assert.Equal(t, int64(2), anc[0].ID)
}

func TestPath(t *testing.T) {
	path := Path(2, chain())
	require.Len(t, path, 2)
	assert.Equal(t, "North Field", path[0].Name)
	assert.Equal(t, "Block A", path[1].Name)
	assert.Nil(t, Path(42, chain()))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "North Field > Block A > Row 1", Display(3, chain()))
	assert.Equal(t, "North Field", Display(1, chain()))
	assert.Equal(t, "", Display(42, chain()))
}

func TestValidateParent(t *testing.T) {
	plots := chain()

	tests := []struct {
		name     string
		plotID   int64
		parentID int64
		want     error
	}{
		{"self", 2, 2, ErrSelfParent},
		{"descendant as parent", 1, 3, ErrCircularParent},
		{"direct child as parent", 2, 3, ErrCircularParent},
		{"move leaf under root", 3, 1, nil},
		{"unknown parent", 3, 99, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParent(tt.plotID, tt.parentID, plots)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateParent_TerminatesOnExistingCycle(t *testing.T) {
	plots := []domain.Plot{
		plot(1, ptr(2), "a"),
		plot(2, ptr(1), "b"),
		plot(3, nil, "c"),
	}
	assert.NoError(t, ValidateParent(3, 1, plots))
}
