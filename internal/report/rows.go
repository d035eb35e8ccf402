package report

import (
	"strconv"
	"strings"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// Header is the column row shared by the tabular formats.
var Header = []string{"Date", "Time", "Plot(s)", "Treatment Type", "Details", "Applied By", "Notes"}

// Row returns the tabular cells for one treatment, aligned with Header.
func Row(t domain.Treatment) []string {
	return []string{
		t.Date,
		t.Time,
		strings.Join(t.PlotNames, ", "),
		string(t.TreatmentType),
		DetailSummary(t),
		t.AppliedByName,
		t.Notes,
	}
}

// DetailSummary condenses the details payload into one cell:
//
//	water       "<amount> inches"
//	fertilizer  "<product>"
//	chemical    "<product> (<chemical type>)"
//	mowing      "<height> inches"
func DetailSummary(t domain.Treatment) string {
	switch {
	case t.Water != nil:
		return FormatNumber(t.Water.AmountInches) + " inches"
	case t.Fertilizer != nil:
		return t.Fertilizer.ProductName
	case t.Chemical != nil:
		return t.Chemical.ProductName + " (" + string(t.Chemical.ChemicalType) + ")"
	case t.Mowing != nil:
		return FormatNumber(t.Mowing.HeightInches) + " inches"
	}
	return ""
}

// Field is one labeled line of the detailed (print) rendering.
type Field struct {
	Label string
	Value string
}

// DetailFields lists the labeled detail lines shown for a treatment in the
// print view and PDF. Optional values are omitted when blank.
func DetailFields(t domain.Treatment) []Field {
	var out []Field
	add := func(label, value string) {
		if value != "" {
			out = append(out, Field{Label: label, Value: value})
		}
	}

	switch {
	case t.Water != nil:
		w := t.Water
		add("Amount", FormatNumber(w.AmountInches)+" inches")
		if w.DurationMinutes != nil {
			add("Duration", strconv.Itoa(*w.DurationMinutes)+" minutes")
		}
		add("Method", w.Method)
	case t.Fertilizer != nil:
		f := t.Fertilizer
		add("Product", f.ProductName)
		add("NPK Ratio", f.NPKRatio)
		add("Amount", strings.TrimSpace(FormatNumber(f.Amount)+" "+f.AmountUnit))
		if f.RatePer1000Sqft != nil {
			add("Rate", FormatNumber(*f.RatePer1000Sqft)+" per 1000 sq ft")
		}
	case t.Chemical != nil:
		c := t.Chemical
		add("Type", string(c.ChemicalType))
		add("Product", c.ProductName)
		add("Active Ingredient", c.ActiveIngredient)
		add("Amount", strings.TrimSpace(FormatNumber(c.Amount)+" "+c.AmountUnit))
		if c.RatePer1000Sqft != nil {
			add("Rate", FormatNumber(*c.RatePer1000Sqft)+" per 1000 sq ft")
		}
		add("Target", c.TargetPest)
	case t.Mowing != nil:
		m := t.Mowing
		add("Height", FormatNumber(m.HeightInches)+" inches")
		clippings := "No"
		if m.ClippingsRemoved {
			clippings = "Yes"
		}
		add("Clippings Removed", clippings)
		add("Mower Type", m.MowerType)
		add("Pattern", m.Pattern)
	}
	return out
}

// When renders the date line of a treatment, e.g. "June 1, 2024 at 07:30".
func When(t domain.Treatment) string {
	if t.Time == "" {
		return FormatDate(t.Date)
	}
	return FormatDate(t.Date) + " at " + t.Time
}
