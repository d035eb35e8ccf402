package report

import "github.com/DukeRupert/turfplot/internal/domain"

// Filter returns the treatments that satisfy every constraint in c, in their
// original order. Unset constraints pass everything:
//
//   - PlotIDs: the treatment applies to at least one listed plot.
//   - DateFrom / DateTo: inclusive bounds compared as YYYY-MM-DD strings.
//   - TreatmentType: exact match.
//
// With no constraints the input slice is returned as is.
func Filter(treatments []domain.Treatment, c domain.ReportCriteria) []domain.Treatment {
	if c.IsEmpty() {
		return treatments
	}

	wanted := make(map[int64]struct{}, len(c.PlotIDs))
	for _, id := range c.PlotIDs {
		wanted[id] = struct{}{}
	}

	out := make([]domain.Treatment, 0, len(treatments))
	for _, t := range treatments {
		if len(wanted) > 0 && !overlaps(t.PlotIDs, wanted) {
			continue
		}
		if c.DateFrom != "" && t.Date < c.DateFrom {
			continue
		}
		if c.DateTo != "" && t.Date > c.DateTo {
			continue
		}
		if c.TreatmentType != "" && t.TreatmentType != c.TreatmentType {
			continue
		}
		out = append(out, t)
	}
	return out
}

func overlaps(ids []int64, wanted map[int64]struct{}) bool {
	for _, id := range ids {
		if _, ok := wanted[id]; ok {
			return true
		}
	}
	return false
}
