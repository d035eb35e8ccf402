// Package domain contains core business types and interfaces.
//
// This file defines the treatment report types shared by the report
// generators, the report service and the export job.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Report Format
// =============================================================================

// ReportFormat represents the output format of a treatment report.
type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatXLSX ReportFormat = "xlsx"
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatHTML ReportFormat = "html" // Print view
)

// String returns the string representation of the format.
func (f ReportFormat) String() string {
	return string(f)
}

// IsValid returns true if the format is a recognized value.
func (f ReportFormat) IsValid() bool {
	switch f {
	case ReportFormatCSV, ReportFormatXLSX, ReportFormatPDF, ReportFormatHTML:
		return true
	}
	return false
}

// ContentType returns the MIME content type for the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatCSV:
		return "text/csv; charset=utf-8"
	case ReportFormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// FileExtension returns the file extension for the format.
func (f ReportFormat) FileExtension() string {
	return string(f)
}

// Filename returns the download name for a report generated on the given day,
// e.g. "treatment-report-2024-06-01.csv".
func (f ReportFormat) Filename(generatedAt time.Time) string {
	return fmt.Sprintf("treatment-report-%s.%s", generatedAt.UTC().Format(DateLayout), f.FileExtension())
}

// =============================================================================
// Report Criteria
// =============================================================================

// ReportCriteria is the conjunctive filter applied to treatments.
// Zero values mean "no constraint".
type ReportCriteria struct {
	PlotIDs       []int64       `json:"plot_ids,omitempty"`
	DateFrom      string        `json:"date_from,omitempty"` // Inclusive, YYYY-MM-DD
	DateTo        string        `json:"date_to,omitempty"`   // Inclusive, YYYY-MM-DD
	TreatmentType TreatmentType `json:"treatment_type,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (c ReportCriteria) IsEmpty() bool {
	return len(c.PlotIDs) == 0 && c.DateFrom == "" && c.DateTo == "" && c.TreatmentType == ""
}

// Validate checks the criteria for malformed values.
func (c ReportCriteria) Validate(op string) error {
	ve := &ValidationError{Op: op}
	if c.DateFrom != "" {
		if _, err := time.Parse(DateLayout, c.DateFrom); err != nil {
			ve.Add("date_from", "Date must be in YYYY-MM-DD format.")
		}
	}
	if c.DateTo != "" {
		if _, err := time.Parse(DateLayout, c.DateTo); err != nil {
			ve.Add("date_to", "Date must be in YYYY-MM-DD format.")
		}
	}
	if c.TreatmentType != "" && !c.TreatmentType.IsValid() {
		ve.Add("treatment_type", fmt.Sprintf("%q is not a valid treatment type.", c.TreatmentType))
	}
	return ve.ErrOrNil()
}

// =============================================================================
// Report Data
// =============================================================================

// ReportData aggregates everything a generator needs.
type ReportData struct {
	Title       string
	Criteria    ReportCriteria
	Treatments  []Treatment // Already filtered, in listing order
	PlotNames   []string    // Names of the selected plots, for the header
	GeneratedAt time.Time
}

// TreatmentCount returns the number of treatments in the report.
func (d *ReportData) TreatmentCount() int {
	return len(d.Treatments)
}

// CountByType returns counts grouped by treatment type.
func (d *ReportData) CountByType() map[TreatmentType]int {
	counts := make(map[TreatmentType]int)
	for _, t := range d.Treatments {
		counts[t.TreatmentType]++
	}
	return counts
}

// =============================================================================
// Stored Exports
// =============================================================================

// ReportExport describes a report rendered in the background and archived in
// object storage.
type ReportExport struct {
	JobID       uuid.UUID      `json:"job_id"`
	Format      ReportFormat   `json:"format"`
	Criteria    ReportCriteria `json:"criteria"`
	StorageKey  string         `json:"storage_key"`
	RequestedBy uuid.UUID      `json:"requested_by"`
}
