package hierarchy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/turfplot/internal/domain"
)

func TestToggle_SelectCascades(t *testing.T) {
	next := Toggle(1, Selection{}, chain())
	assert.Equal(t, []int64{1, 2, 3}, next.IDs())

	again := Toggle(1, next, chain())
	assert.Equal(t, []int64{}, again.IDs())
}

func TestToggle_DeselectChildKeepsSiblings(t *testing.T) {
	plots := []domain.Plot{
		plot(1, nil, "North Field"),
		plot(2, ptr(1), "Block A"),
		plot(3, ptr(1), "Block B"),
		plot(4, ptr(2), "Row 1"),
	}

	sel := Toggle(1, Selection{}, plots)
	require.Equal(t, []int64{1, 2, 3, 4}, sel.IDs())

	sel = Toggle(2, sel, plots)
	assert.Equal(t, []int64{1, 3}, sel.IDs())
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	sel := NewSelection(7)
	_ = Toggle(1, sel, chain())
	assert.Equal(t, []int64{7}, sel.IDs())
}

func TestToggle_UnknownPlot(t *testing.T) {
	next := Toggle(42, NewSelection(1), chain())
	assert.Equal(t, []int64{1, 42}, next.IDs())
}

func TestSelection_JSON(t *testing.T) {
	sel := NewSelection(3, 1, 3, 2)
	data, err := json.Marshal(sel)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(data))

	var decoded Selection
	require.NoError(t, json.Unmarshal([]byte(`[5,4,5]`), &decoded))
	assert.True(t, decoded.Equal(NewSelection(4, 5)))
	assert.Equal(t, 2, decoded.Len())
}
