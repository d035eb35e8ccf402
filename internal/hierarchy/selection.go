package hierarchy

import (
	"encoding/json"
	"slices"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// Selection is an immutable set of selected plot ids. The zero value is an
// empty selection.
type Selection struct {
	ids map[int64]struct{}
}

// NewSelection returns a selection holding ids, deduplicated.
func NewSelection(ids ...int64) Selection {
	s := Selection{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Has reports whether id is selected.
func (s Selection) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s Selection) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether both selections hold the same ids.
func (s Selection) Equal(other Selection) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

func (s Selection) clone() Selection {
	c := Selection{ids: make(map[int64]struct{}, len(s.ids))}
	for id := range s.ids {
		c.ids[id] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the selection as a sorted id array.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an id array.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSelection(ids...)
	return nil
}

// Toggle flips plotID in the selection and cascades to its subtree.
//
// When plotID is selected, it and all of its descendants are removed; other
// ids stay. Otherwise plotID and all of its descendants are added. The input
// selection is never modified. Toggling the same plot twice returns an equal
// selection whenever the original held all or none of the plot's subtree.
func Toggle(plotID int64, sel Selection, plots []domain.Plot) Selection {
	next := sel.clone()
	scope := append([]int64{plotID}, Descendants(plotID, plots)...)

	if sel.Has(plotID) {
		for _, id := range scope {
			delete(next.ids, id)
		}
		return next
	}
	for _, id := range scope {
		next.ids[id] = struct{}{}
	}
	return next
}
