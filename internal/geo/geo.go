// Package geo validates plot map coordinates and derives plot centers.
package geo

import (
	"errors"
	"math"

	"github.com/DukeRupert/turfplot/internal/domain"
)

// Precision is the number of decimal places stored for coordinates.
const Precision = 8

var (
	ErrLatitudeRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange = errors.New("longitude must be between -180 and 180")
	ErrTooFewVertices = errors.New("polygon needs at least 3 points")
)

// ValidPoint reports whether lat/lng is a finite point on the globe.
func ValidPoint(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.Abs(lat) > 90 {
		return ErrLatitudeRange
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) || math.Abs(lng) > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// ValidatePolygon checks vertex count and every vertex range.
func ValidatePolygon(poly domain.Polygon) error {
	if len(poly) < 3 {
		return ErrTooFewVertices
	}
	for _, c := range poly {
		if err := ValidPoint(c.Lat, c.Lng); err != nil {
			return err
		}
	}
	return nil
}

// Center returns the bounding-box center of the polygon, rounded to
// Precision places. ok is false for an empty polygon.
func Center(poly domain.Polygon) (lat, lng float64, ok bool) {
	if len(poly) == 0 {
		return 0, 0, false
	}
	minLat, maxLat := poly[0].Lat, poly[0].Lat
	minLng, maxLng := poly[0].Lng, poly[0].Lng
	for _, c := range poly[1:] {
		minLat = math.Min(minLat, c.Lat)
		maxLat = math.Max(maxLat, c.Lat)
		minLng = math.Min(minLng, c.Lng)
		maxLng = math.Max(maxLng, c.Lng)
	}
	return Round((minLat + maxLat) / 2), Round((minLng + maxLng) / 2), true
}

// Round rounds v to Precision decimal places.
func Round(v float64) float64 {
	const scale = 1e8
	return math.Round(v*scale) / scale
}
