// Package domain contains core business types and interfaces.
//
// This file defines treatments applied to plots. A treatment carries exactly one
// details payload, selected by its TreatmentType tag.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Treatment Type
// =============================================================================

// TreatmentType is the closed set of treatment kinds.
type TreatmentType string

const (
	TreatmentTypeWater      TreatmentType = "water"
	TreatmentTypeFertilizer TreatmentType = "fertilizer"
	TreatmentTypeChemical   TreatmentType = "chemical"
	TreatmentTypeMowing     TreatmentType = "mowing"
)

// TreatmentTypes lists every treatment type in display order.
var TreatmentTypes = []TreatmentType{
	TreatmentTypeWater,
	TreatmentTypeFertilizer,
	TreatmentTypeChemical,
	TreatmentTypeMowing,
}

// String returns the string representation of the treatment type.
func (t TreatmentType) String() string {
	return string(t)
}

// IsValid returns true if the type is a recognized value.
func (t TreatmentType) IsValid() bool {
	switch t {
	case TreatmentTypeWater, TreatmentTypeFertilizer, TreatmentTypeChemical, TreatmentTypeMowing:
		return true
	}
	return false
}

// ChemicalType classifies a chemical application.
type ChemicalType string

const (
	ChemicalTypeHerbicide       ChemicalType = "herbicide"
	ChemicalTypeInsecticide     ChemicalType = "insecticide"
	ChemicalTypeFungicide       ChemicalType = "fungicide"
	ChemicalTypeGrowthRegulator ChemicalType = "growth_regulator"
	ChemicalTypeOther           ChemicalType = "other"
)

// IsValid returns true if the chemical type is a recognized value.
func (c ChemicalType) IsValid() bool {
	switch c {
	case ChemicalTypeHerbicide, ChemicalTypeInsecticide, ChemicalTypeFungicide,
		ChemicalTypeGrowthRegulator, ChemicalTypeOther:
		return true
	}
	return false
}

// Default units applied when a details payload leaves them blank.
const (
	DefaultFertilizerUnit = "lbs"
	DefaultChemicalUnit   = "oz"
)

// Date and time layouts used on the wire and in storage.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// =============================================================================
// Details Payloads
// =============================================================================

// WaterDetails describes irrigation.
type WaterDetails struct {
	AmountInches    float64 `json:"amount_inches"`
	DurationMinutes *int    `json:"duration_minutes"`
	Method          string  `json:"method"`
}

// FertilizerDetails describes a fertilizer application.
type FertilizerDetails struct {
	ProductName     string   `json:"product_name"`
	NPKRatio        string   `json:"npk_ratio"`
	Amount          float64  `json:"amount"`
	AmountUnit      string   `json:"amount_unit"`
	RatePer1000Sqft *float64 `json:"rate_per_1000sqft"`
}

// ChemicalDetails describes a pesticide or regulator application.
type ChemicalDetails struct {
	ChemicalType     ChemicalType `json:"chemical_type"`
	ProductName      string       `json:"product_name"`
	ActiveIngredient string       `json:"active_ingredient"`
	Amount           float64      `json:"amount"`
	AmountUnit       string       `json:"amount_unit"`
	RatePer1000Sqft  *float64     `json:"rate_per_1000sqft"`
	TargetPest       string       `json:"target_pest"`
}

// MowingDetails describes a mowing pass.
type MowingDetails struct {
	HeightInches     float64 `json:"height_inches"`
	ClippingsRemoved bool    `json:"clippings_removed"`
	MowerType        string  `json:"mower_type"`
	Pattern          string  `json:"pattern"`
}

// Details groups the four mutually exclusive payloads. At most one is set.
type Details struct {
	Water      *WaterDetails      `json:"water_details"`
	Fertilizer *FertilizerDetails `json:"fertilizer_details"`
	Chemical   *ChemicalDetails   `json:"chemical_details"`
	Mowing     *MowingDetails     `json:"mowing_details"`
}

// count returns how many payloads are populated.
func (d *Details) count() int {
	n := 0
	if d.Water != nil {
		n++
	}
	if d.Fertilizer != nil {
		n++
	}
	if d.Chemical != nil {
		n++
	}
	if d.Mowing != nil {
		n++
	}
	return n
}

// Matches reports whether exactly the payload for t is populated.
func (d *Details) Matches(t TreatmentType) bool {
	if d.count() != 1 {
		return false
	}
	switch t {
	case TreatmentTypeWater:
		return d.Water != nil
	case TreatmentTypeFertilizer:
		return d.Fertilizer != nil
	case TreatmentTypeChemical:
		return d.Chemical != nil
	case TreatmentTypeMowing:
		return d.Mowing != nil
	}
	return false
}

// =============================================================================
// Treatment
// =============================================================================

// Treatment is one application of a treatment to a set of plots.
type Treatment struct {
	ID            int64         `json:"id"`
	PlotIDs       []int64       `json:"plots"`
	PlotNames     []string      `json:"plot_names"`
	TreatmentType TreatmentType `json:"treatment_type"`
	Date          string        `json:"date"` // YYYY-MM-DD
	Time          string        `json:"time"` // HH:MM, empty when unknown
	Notes         string        `json:"notes"`
	AppliedBy     *uuid.UUID    `json:"applied_by"`
	AppliedByName string        `json:"applied_by_name"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Details
}

// HasPlot reports whether the treatment applies to plotID.
func (t *Treatment) HasPlot(plotID int64) bool {
	for _, id := range t.PlotIDs {
		if id == plotID {
			return true
		}
	}
	return false
}

// TreatmentInput carries the writable treatment fields.
type TreatmentInput struct {
	PlotIDs       []int64       `json:"plots"`
	TreatmentType TreatmentType `json:"treatment_type"`
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	Notes         string        `json:"notes"`
	Details
}

// CreateTreatmentParams contains parameters for recording a treatment.
type CreateTreatmentParams struct {
	TreatmentInput
	AppliedBy uuid.UUID
	// Cascade expands PlotIDs with every descendant of each listed plot.
	Cascade bool
}

// UpdateTreatmentParams contains parameters for updating a treatment.
type UpdateTreatmentParams struct {
	ID int64
	TreatmentInput
	Cascade bool
}

// TreatmentListFilter narrows a treatment listing.
type TreatmentListFilter struct {
	TreatmentType TreatmentType
	Date          string // Exact date match
	PlotID        *int64 // Treatments applied to this plot
	Search        string // Case-insensitive match on plot names and notes
}

// Normalize trims text fields, fills default units and reduces a time with
// seconds to HH:MM.
func (in *TreatmentInput) Normalize() {
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	in.Notes = strings.TrimSpace(in.Notes)
	if len(in.Time) == len("15:04:05") {
		in.Time = in.Time[:len(TimeLayout)]
	}

	if f := in.Fertilizer; f != nil {
		f.ProductName = strings.TrimSpace(f.ProductName)
		if strings.TrimSpace(f.AmountUnit) == "" {
			f.AmountUnit = DefaultFertilizerUnit
		}
	}
	if c := in.Chemical; c != nil {
		c.ProductName = strings.TrimSpace(c.ProductName)
		if c.ChemicalType == "" {
			c.ChemicalType = ChemicalTypeHerbicide
		}
		if strings.TrimSpace(c.AmountUnit) == "" {
			c.AmountUnit = DefaultChemicalUnit
		}
	}
}

// Validate checks the input and returns field errors, or nil.
func (in *TreatmentInput) Validate(op string) error {
	ve := &ValidationError{Op: op}

	if len(in.PlotIDs) == 0 {
		ve.Add("plots", "At least one plot is required.")
	}
	if !in.TreatmentType.IsValid() {
		ve.Add("treatment_type", fmt.Sprintf("%q is not a valid treatment type.", in.TreatmentType))
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		ve.Add("date", "Date must be in YYYY-MM-DD format.")
	}
	if in.Time != "" {
		if _, err := time.Parse(TimeLayout, in.Time); err != nil {
			ve.Add("time", "Time must be in HH:MM format.")
		}
	}

	if in.TreatmentType.IsValid() && !in.Details.Matches(in.TreatmentType) {
		ve.Add(string(in.TreatmentType)+"_details", "Exactly one details payload matching the treatment type is required.")
		return ve
	}

	switch in.TreatmentType {
	case TreatmentTypeWater:
		if in.Water.AmountInches <= 0 {
			ve.Add("water_details.amount_inches", "Amount must be greater than zero.")
		}
	case TreatmentTypeFertilizer:
		if in.Fertilizer.ProductName == "" {
			ve.Add("fertilizer_details.product_name", "Product name is required.")
		}
		if in.Fertilizer.Amount <= 0 {
			ve.Add("fertilizer_details.amount", "Amount must be greater than zero.")
		}
	case TreatmentTypeChemical:
		if !in.Chemical.ChemicalType.IsValid() {
			ve.Add("chemical_details.chemical_type", fmt.Sprintf("%q is not a valid chemical type.", in.Chemical.ChemicalType))
		}
		if in.Chemical.ProductName == "" {
			ve.Add("chemical_details.product_name", "Product name is required.")
		}
		if in.Chemical.Amount <= 0 {
			ve.Add("chemical_details.amount", "Amount must be greater than zero.")
		}
	case TreatmentTypeMowing:
		if in.Mowing.HeightInches <= 0 {
			ve.Add("mowing_details.height_inches", "Height must be greater than zero.")
		}
	}

	return ve.ErrOrNil()
}
