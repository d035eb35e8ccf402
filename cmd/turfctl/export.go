package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/turfplot/internal/domain"
)

var exportOpts struct {
	format        string
	plots         string
	dateFrom      string
	dateTo        string
	treatmentType string
	out           string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a treatment report to a file or stdout",
	Example: `  turfctl export --format csv --plots 3,7 --from 2024-04-01 --to 2024-06-30
  turfctl export --format pdf --type fertilizer --out spring.pdf`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.format, "format", "csv", "output format: csv, xlsx, pdf or html")
	f.StringVar(&exportOpts.plots, "plots", "", "comma separated plot ids; sub-plots are included")
	f.StringVar(&exportOpts.dateFrom, "from", "", "first application date, YYYY-MM-DD")
	f.StringVar(&exportOpts.dateTo, "to", "", "last application date, YYYY-MM-DD")
	f.StringVar(&exportOpts.treatmentType, "type", "", "treatment type filter")
	f.StringVarP(&exportOpts.out, "out", "o", "", "output file; defaults to a dated file name, - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := domain.ReportFormat(strings.ToLower(exportOpts.format))
	if !format.IsValid() {
		return fmt.Errorf("unknown format %q", exportOpts.format)
	}

	plotIDs, err := parsePlotIDs(exportOpts.plots)
	if err != nil {
		return err
	}
	criteria := domain.ReportCriteria{
		PlotIDs:       plotIDs,
		DateFrom:      exportOpts.dateFrom,
		DateTo:        exportOpts.dateTo,
		TreatmentType: domain.TreatmentType(exportOpts.treatmentType),
	}

	var w io.Writer
	path := exportOpts.out
	switch path {
	case "-":
		w = cmd.OutOrStdout()
	case "":
		path = format.Filename(time.Now())
		fallthrough
	default:
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := a.reports.Generate(cmd.Context(), format, criteria, w)
	if err != nil {
		if path != "-" {
			_ = os.Remove(path)
		}
		return err
	}
	if path != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", n, path)
	}
	return nil
}

// parsePlotIDs reads a comma separated id list. Blank entries are skipped.
func parsePlotIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid plot id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
