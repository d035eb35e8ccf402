package report

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// Sheet names used in the workbook.
const (
	treatmentsSheet = "Treatments"
	summarySheet    = "Summary"
)

// =============================================================================
// XLSX Generator
// =============================================================================

// XLSXGenerator writes the treatment listing as an Excel workbook with a
// Treatments sheet (same columns as the CSV) and a Summary sheet.
type XLSXGenerator struct{}

// NewXLSXGenerator creates an XLSX generator.
func NewXLSXGenerator() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Format returns the output format of this generator.
func (g *XLSXGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatXLSX
}

// Generate writes the workbook to w.
func (g *XLSXGenerator) Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", treatmentsSheet); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: trimHash(BrandColors.White)},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{trimHash(BrandColors.Turf)}},
	})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(treatmentsSheet, "A1", &header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Header))
	if err := f.SetCellStyle(treatmentsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return 0, fmt.Errorf("style header: %w", err)
	}

	for i, t := range data.Treatments {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		cells := Row(t)
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(treatmentsSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	widths := []float64{12, 8, 30, 16, 30, 20, 40}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(treatmentsSheet, col, col, width); err != nil {
			return 0, fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.SetPanes(treatmentsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return 0, fmt.Errorf("freeze header: %w", err)
	}

	if len(data.Treatments) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(data.Treatments)+1)
		if err := f.AutoFilter(treatmentsSheet, ref, nil); err != nil {
			return 0, fmt.Errorf("add auto filter: %w", err)
		}
	}

	if err := g.addSummary(f, data, headerStyle); err != nil {
		return 0, err
	}

	n, err := f.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("write workbook: %w", err)
	}
	return n, nil
}

func (g *XLSXGenerator) addSummary(f *excelize.File, data *domain.ReportData, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{reportTitle(data)},
		{"Generated", FormatDateTime(data.GeneratedAt)},
	}
	if criteria := DescribeCriteria(data); criteria != "" {
		rows = append(rows, []interface{}{"Filters", criteria})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Treatment Type", "Count"})
	headerRow := len(rows)

	counts := data.CountByType()
	for _, tt := range domain.TreatmentTypes {
		rows = append(rows, []interface{}{TypeLabel(tt), counts[tt]})
	}
	rows = append(rows, []interface{}{"Total", data.TreatmentCount()})

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	cell := fmt.Sprintf("A%d", headerRow)
	if err := f.SetCellStyle(summarySheet, cell, fmt.Sprintf("B%d", headerRow), headerStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	return f.SetColWidth(summarySheet, "A", "B", 24)
}

func trimHash(hex string) string {
	if len(hex) > 0 && hex[0] == '#' {
		return hex[1:]
	}
	return hex
}
