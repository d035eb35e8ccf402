package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// =============================================================================
// CSV Generator
// =============================================================================

// CSVGenerator writes the treatment listing as comma-separated values.
//
// The header row is written bare; every data field is wrapped in double
// quotes with embedded quotes doubled. Lines end with "\n".
type CSVGenerator struct{}

// NewCSVGenerator creates a CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format returns the output format of this generator.
func (g *CSVGenerator) Format() domain.ReportFormat {
	return domain.ReportFormatCSV
}

// Generate writes the CSV report to w.
func (g *CSVGenerator) Generate(ctx context.Context, data *domain.ReportData, w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	if _, err := bw.WriteString(strings.Join(Header, ",")); err != nil {
		return cw.n, fmt.Errorf("write csv header: %w", err)
	}

	for i, t := range data.Treatments {
		if i%500 == 0 {
			if err := ctx.Err(); err != nil {
				return cw.n, err
			}
		}
		bw.WriteByte('\n')
		for j, cell := range Row(t) {
			if j > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quoteField(cell))
		}
	}

	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("write csv rows: %w", err)
	}
	return cw.n, nil
}

// quoteField wraps s in double quotes, doubling any quote inside it.
func quoteField(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
