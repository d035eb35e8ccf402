package report

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/DukeRupert/turfplot/internal/domain"
)

var treatmentTypes = []domain.TreatmentType{
	domain.TreatmentTypeWater,
	domain.TreatmentTypeFertilizer,
	domain.TreatmentTypeChemical,
	domain.TreatmentTypeMowing,
}

// genDate draws a date in June 2024, or "" when optional is set.
func genDate(t *rapid.T, label string, optional bool) string {
	day := rapid.IntRange(0, 30).Draw(t, label)
	if optional && day == 0 {
		return ""
	}
	if day == 0 {
		day = 1
	}
	return fmt.Sprintf("2024-06-%02d", day)
}

func genTreatments(t *rapid.T) []domain.Treatment {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	out := make([]domain.Treatment, 0, n)
	for i := 0; i < n; i++ {
		plots := rapid.SliceOfN(rapid.Int64Range(1, 6), 0, 3).Draw(t, "plots")
		out = append(out, domain.Treatment{
			ID:            int64(i + 1),
			Date:          genDate(t, "date", false),
			TreatmentType: rapid.SampledFrom(treatmentTypes).Draw(t, "type"),
			PlotIDs:       plots,
		})
	}
	return out
}

func genCriteria(t *rapid.T) domain.ReportCriteria {
	c := domain.ReportCriteria{
		DateFrom: genDate(t, "from", true),
		DateTo:   genDate(t, "to", true),
		PlotIDs:  rapid.SliceOfN(rapid.Int64Range(1, 6), 0, 2).Draw(t, "plot_ids"),
	}
	if rapid.Bool().Draw(t, "typed") {
		c.TreatmentType = rapid.SampledFrom(treatmentTypes).Draw(t, "treatment_type")
	}
	return c
}

// Narrowing by dates and then by type gives the same rows as both at once.
func TestProperty_FilterComposes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		treatments := genTreatments(t)
		c := genCriteria(t)

		byDate := Filter(treatments, domain.ReportCriteria{DateFrom: c.DateFrom, DateTo: c.DateTo})
		byType := Filter(byDate, domain.ReportCriteria{TreatmentType: c.TreatmentType})
		stepwise := Filter(byType, domain.ReportCriteria{PlotIDs: c.PlotIDs})
		combined := Filter(treatments, c)

		if diff := cmp.Diff(treatmentIDs(combined), treatmentIDs(stepwise)); diff != "" {
			t.Fatalf("stepwise filter differs from combined (-combined +stepwise):\n%s", diff)
		}
	})
}

func TestProperty_FilterIsIdempotentSubsequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		treatments := genTreatments(t)
		c := genCriteria(t)

		once := Filter(treatments, c)
		if diff := cmp.Diff(treatmentIDs(once), treatmentIDs(Filter(once, c))); diff != "" {
			t.Fatalf("filtering twice changed the result:\n%s", diff)
		}

		// Ids are ascending in the input, so order is kept iff they stay ascending.
		ids := treatmentIDs(once)
		for i := 1; i < len(ids); i++ {
			if ids[i] <= ids[i-1] {
				t.Fatalf("result out of input order: %v", ids)
			}
		}
		for _, tr := range once {
			if c.DateFrom != "" && tr.Date < c.DateFrom {
				t.Fatalf("treatment %d dated %s before %s", tr.ID, tr.Date, c.DateFrom)
			}
			if c.DateTo != "" && tr.Date > c.DateTo {
				t.Fatalf("treatment %d dated %s after %s", tr.ID, tr.Date, c.DateTo)
			}
			if c.TreatmentType != "" && tr.TreatmentType != c.TreatmentType {
				t.Fatalf("treatment %d has type %s, want %s", tr.ID, tr.TreatmentType, c.TreatmentType)
			}
		}
	})
}
