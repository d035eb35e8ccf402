// Package report renders filtered treatment listings as CSV, a printable HTML
// page, PDF and XLSX.
//
// This package defines a Generator interface implemented once per format,
// along with the shared row model and the helpers for formatting and styling
// reports in the turfplot brand style.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for report generators.
// Implementations handle the specifics of each format.
type Generator interface {
	// Generate creates a report and writes it to the provided writer.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error)

	// Format returns the output format of this generator.
	Format() domain.ReportFormat
}

// NewGenerator returns the generator for format.
func NewGenerator(format domain.ReportFormat) (Generator, error) {
	switch format {
	case domain.ReportFormatCSV:
		return NewCSVGenerator(), nil
	case domain.ReportFormatHTML:
		return NewHTMLGenerator(), nil
	case domain.ReportFormatPDF:
		return NewPDFGenerator(), nil
	case domain.ReportFormatXLSX:
		return NewXLSXGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported report format: %q", format)
	}
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors defines the color palette for reports.
var BrandColors = struct {
	Turf       string // Primary brand color
	Gold       string // Accent
	TextDark   string // Primary text
	TextMuted  string // Secondary text
	Border     string // Borders and dividers
	Background string // Light background
	White      string
}{
	Turf:       "#166534",
	Gold:       "#CFB991",
	TextDark:   "#1F2937",
	TextMuted:  "#6B7280",
	Border:     "#D1D5DB",
	Background: "#F9FAFB",
	White:      "#FFFFFF",
}

// TypeColors maps treatment types to accent colors.
var TypeColors = map[domain.TreatmentType]string{
	domain.TreatmentTypeWater:      "#2563EB", // Blue-600
	domain.TreatmentTypeFertilizer: "#16A34A", // Green-600
	domain.TreatmentTypeChemical:   "#DC2626", // Red-600
	domain.TreatmentTypeMowing:     "#CA8A04", // Yellow-600
}

// TypeColor returns the accent color for a treatment type.
func TypeColor(t domain.TreatmentType) string {
	if color, ok := TypeColors[t]; ok {
		return color
	}
	return BrandColors.TextMuted
}

var titleCaser = cases.Title(language.English)

// TypeLabel returns the display label for a treatment type, e.g. "Fertilizer".
func TypeLabel(t domain.TreatmentType) string {
	return titleCaser.String(string(t))
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// FormatNumber renders a measurement with the shortest exact representation:
// 1.5 -> "1.5", 2 -> "2".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatDate renders a YYYY-MM-DD date for display, e.g. "June 1, 2024".
// Unparseable input is returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// FormatDateTime formats a timestamp for report headers and footers.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// TruncateText truncates text to a maximum number of runes, adding an
// ellipsis if needed.
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// countingWriter tracks bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
