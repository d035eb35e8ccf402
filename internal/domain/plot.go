// Package domain contains core business types and interfaces.
//
// This file defines research plots. Plots form a forest through ParentPlotID;
// the in-memory tree operations live in internal/hierarchy.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Plot field limits.
const (
	MaxPlotNameLength      = 100
	MaxPlotLocationLength  = 200
	MaxPlotGrassTypeLength = 100
)

// Coordinate is a single polygon vertex.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is the ordered vertex list of a plot boundary.
type Polygon []Coordinate

// Plot is a research plot, optionally nested under a parent plot.
type Plot struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	ParentPlotID     *int64     `json:"parent_plot"`
	ParentPlotName   string     `json:"parent_plot_name,omitempty"`
	HierarchyDisplay string     `json:"hierarchy_display,omitempty"`
	Location         string     `json:"location"`
	SizeSqft         *float64   `json:"size_sqft"`
	GrassType        string     `json:"grass_type"`
	Notes            string     `json:"notes"`
	Polygon          Polygon    `json:"polygon_coordinates"`
	CenterLat        *float64   `json:"center_lat"`
	CenterLng        *float64   `json:"center_lng"`
	CreatedBy        *uuid.UUID `json:"created_by"`
	CreatedByName    string     `json:"created_by_name,omitempty"`
	TreatmentCount   int        `json:"treatment_count"`
	SubplotCount     int        `json:"subplot_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsRoot reports whether the plot has no parent.
func (p *Plot) IsRoot() bool {
	return p.ParentPlotID == nil
}

// HasCoordinates reports whether the plot can be placed on a map: either a
// full center point or a polygon boundary.
func (p *Plot) HasCoordinates() bool {
	return (p.CenterLat != nil && p.CenterLng != nil) || p.Polygon != nil
}

// PolygonJSON returns the polygon encoded for storage, or nil when absent.
func (p *Plot) PolygonJSON() (json.RawMessage, error) {
	if p.Polygon == nil {
		return nil, nil
	}
	return json.Marshal(p.Polygon)
}

// PlotInput carries the writable plot fields shared by create and update.
type PlotInput struct {
	Name         string   `json:"name"`
	ParentPlotID *int64   `json:"parent_plot"`
	Location     string   `json:"location"`
	SizeSqft     *float64 `json:"size_sqft"`
	GrassType    string   `json:"grass_type"`
	Notes        string   `json:"notes"`
	Polygon      Polygon  `json:"polygon_coordinates"`
	CenterLat    *float64 `json:"center_lat"`
	CenterLng    *float64 `json:"center_lng"`
}

// CreatePlotParams contains parameters for creating a plot.
type CreatePlotParams struct {
	PlotInput
	CreatedBy uuid.UUID
}

// UpdatePlotParams contains parameters for updating a plot.
type UpdatePlotParams struct {
	ID int64
	PlotInput
}

// PlotListFilter narrows a plot listing.
type PlotListFilter struct {
	ParentOnly   bool   // Only plots without a parent
	ParentPlotID *int64 // Only direct children of this plot
	Search       string // Case-insensitive match on name, location, grass type, notes
}

// PlotHierarchy is the full context around one plot.
type PlotHierarchy struct {
	Parents        []Plot `json:"parents"` // Root first, immediate parent last
	Current        Plot   `json:"current"`
	Subplots       []Plot `json:"subplots"`
	AllDescendants []Plot `json:"all_descendants"` // Breadth-first order
}
