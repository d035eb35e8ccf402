package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator generates printable PDF treatment reports.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
}

// Format returns the output format of this generator.
func (g *PDFGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatPDF
}

// Generate creates a PDF report and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := reportTitle(data)
	pdf.SetTitle(title, true)
	pdf.SetCreator("turfplot", true)
	pdf.SetMargins(g.margin, g.margin, g.margin)
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, data)
	})

	pdf.AddPage()
	g.addHeader(pdf, tr, title, data)
	g.addSummary(pdf, data)

	if len(data.Treatments) == 0 {
		r, gr, b := HexToRGB(BrandColors.TextMuted)
		pdf.SetTextColor(r, gr, b)
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(g.contentWidth, 10, "No treatments match the selected filters.", "", 1, "C", false, 0, "")
	}

	for i, t := range data.Treatments {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		g.addTreatment(pdf, tr, t)
	}

	// Check for errors during generation
	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Sections
// =============================================================================

func (g *PDFGenerator) addHeader(pdf *fpdf.Fpdf, tr func(string) string, title string, data *domain.ReportData) {
	r, gr, b := HexToRGB(BrandColors.Turf)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 32, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(g.margin, 10)
	pdf.Cell(0, 10, tr(title))

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(g.margin, 21)
	pdf.Cell(0, 6, "Generated on "+FormatDateTime(data.GeneratedAt))

	pdf.SetXY(g.margin, 40)
	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	if criteria := DescribeCriteria(data); criteria != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(g.contentWidth, 5, tr(criteria), "", "L", false)
		pdf.Ln(3)
	}
}

func (g *PDFGenerator) addSummary(pdf *fpdf.Fpdf, data *domain.ReportData) {
	counts := data.CountByType()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(60, 8, "Treatment Type", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Count", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, tt := range domain.TreatmentTypes {
		count := counts[tt]
		if count == 0 {
			continue
		}
		r, gr, b := HexToRGB(TypeColor(tt))
		pdf.SetFillColor(r, gr, b)
		pdf.CellFormat(4, 8, "", "1", 0, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.CellFormat(56, 8, TypeLabel(tt), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", count), "1", 1, "C", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(60, 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, fmt.Sprintf("%d", data.TreatmentCount()), "1", 1, "C", true, 0, "")
	pdf.Ln(8)
}

func (g *PDFGenerator) addTreatment(pdf *fpdf.Fpdf, tr func(string) string, t domain.Treatment) {
	// Start a new page rather than splitting a short card.
	if pdf.GetY() > g.pageHeight-60 {
		pdf.AddPage()
	}

	// Accent bar with the type label
	r, gr, b := HexToRGB(TypeColor(t.TreatmentType))
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.GetY(), 2, 8, "F")
	pdf.SetX(g.margin + 4)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, TypeLabel(t.TreatmentType))
	pdf.Ln(9)

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	g.addLabelValue(pdf, tr, "Date", When(t))
	g.addLabelValue(pdf, tr, "Plot(s)", strings.Join(t.PlotNames, ", "))
	g.addLabelValue(pdf, tr, "Applied by", t.AppliedByName)
	for _, f := range DetailFields(t) {
		g.addLabelValue(pdf, tr, f.Label, f.Value)
	}
	if t.Notes != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(g.contentWidth, 5, tr("Notes: "+t.Notes), "", "L", false)
	}

	pdf.Ln(3)
	r, gr, b = HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(5)
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addLabelValue(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(40, 6, tr(label+":"))
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(g.contentWidth-40, 6, tr(value), "", "L", false)
}

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, data *domain.ReportData) {
	pdf.SetY(-15)

	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.SetFont("Helvetica", "", 8)

	pdf.Cell(0, 10, fmt.Sprintf("%d treatment(s)", data.TreatmentCount()))

	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
