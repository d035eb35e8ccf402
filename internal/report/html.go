package report

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/DukeRupert/turfplot/internal/domain"
)

//go:embed templates/print.html
var templateFS embed.FS

var printTemplate = template.Must(template.ParseFS(templateFS, "templates/print.html"))

// =============================================================================
// HTML Generator
// =============================================================================

// HTMLGenerator renders the print-optimized treatment report page.
type HTMLGenerator struct {
	tmpl *template.Template
}

// NewHTMLGenerator creates an HTML print view generator.
func NewHTMLGenerator() *HTMLGenerator {
	return &HTMLGenerator{tmpl: printTemplate}
}

// Format returns the output format of this generator.
func (g *HTMLGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatHTML
}

// printView is the template data for the print page.
type printView struct {
	Title      string
	Generated  string
	Criteria   string
	Colors     any
	Treatments []printTreatment
}

type printTreatment struct {
	Label     string
	Color     string
	When      string
	Plots     string
	AppliedBy string
	Fields    []Field
	Notes     string
}

// Generate renders the print page to w.
func (g *HTMLGenerator) Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	view := printView{
		Title:      reportTitle(data),
		Generated:  FormatDateTime(data.GeneratedAt),
		Criteria:   DescribeCriteria(data),
		Colors:     BrandColors,
		Treatments: make([]printTreatment, 0, len(data.Treatments)),
	}
	for _, t := range data.Treatments {
		view.Treatments = append(view.Treatments, printTreatment{
			Label:     TypeLabel(t.TreatmentType),
			Color:     TypeColor(t.TreatmentType),
			When:      When(t),
			Plots:     strings.Join(t.PlotNames, ", "),
			AppliedBy: t.AppliedByName,
			Fields:    DetailFields(t),
			Notes:     t.Notes,
		})
	}

	cw := &countingWriter{w: w}
	if err := g.tmpl.Execute(cw, view); err != nil {
		return cw.n, fmt.Errorf("render print view: %w", err)
	}
	return cw.n, nil
}

// reportTitle falls back to "Treatment Report" when no title is configured.
func reportTitle(data *domain.ReportData) string {
	if strings.TrimSpace(data.Title) == "" {
		return "Treatment Report"
	}
	return data.Title
}

// DescribeCriteria summarizes the applied filters in one line, or returns ""
// when the report is unfiltered.
func DescribeCriteria(data *domain.ReportData) string {
	c := data.Criteria
	var parts []string
	if len(data.PlotNames) > 0 {
		parts = append(parts, "Plots: "+strings.Join(data.PlotNames, ", "))
	} else if len(c.PlotIDs) > 0 {
		parts = append(parts, fmt.Sprintf("Plots: %d selected", len(c.PlotIDs)))
	}
	switch {
	case c.DateFrom != "" && c.DateTo != "":
		parts = append(parts, "Dates: "+c.DateFrom+" to "+c.DateTo)
	case c.DateFrom != "":
		parts = append(parts, "From: "+c.DateFrom)
	case c.DateTo != "":
		parts = append(parts, "Through: "+c.DateTo)
	}
	if c.TreatmentType != "" {
		parts = append(parts, "Type: "+TypeLabel(c.TreatmentType))
	}
	return strings.Join(parts, " | ")
}
