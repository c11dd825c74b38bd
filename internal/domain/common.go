package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// EPSG codes used across the pipeline
const (
	CRSWGS84 = 4326
	CRSNZTM  = 2193
)

// BoundingBox is an approximate rectangle around an area of interest given by
// two opposite corners in any order.
type BoundingBox struct {
	Lat1 float64 `json:"lat1" yaml:"lat1" validate:"gte=-90,lte=90"`
	Lng1 float64 `json:"lng1" yaml:"lng1" validate:"gte=-180,lte=180"`
	Lat2 float64 `json:"lat2" yaml:"lat2" validate:"gte=-90,lte=90"`
	Lng2 float64 `json:"lng2" yaml:"lng2" validate:"gte=-180,lte=180"`
	CRS  int     `json:"crs" yaml:"crs"`
}

// Extent is a normalized rectangle with XMin <= XMax and YMin <= YMax.
type Extent struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Normalize returns the box as (xmin, ymin, xmax, ymax) regardless of corner order.
func (b BoundingBox) Normalize() Extent {
	return Extent{
		XMin: math.Min(b.Lng1, b.Lng2),
		YMin: math.Min(b.Lat1, b.Lat2),
		XMax: math.Max(b.Lng1, b.Lng2),
		YMax: math.Max(b.Lat1, b.Lat2),
	}
}

// CoordinateSystem returns the EPSG code of the box, WGS84 when unset.
func (b BoundingBox) CoordinateSystem() int {
	if b.CRS == 0 {
		return CRSWGS84
	}
	return b.CRS
}

// Corners returns the closed ring of the extent, counter-clockwise from (xmin, ymin).
func (e Extent) Corners() [][2]float64 {
	return [][2]float64{
		{e.XMin, e.YMin},
		{e.XMax, e.YMin},
		{e.XMax, e.YMax},
		{e.XMin, e.YMax},
		{e.XMin, e.YMin},
	}
}

// Bound returns the extent as an orb.Bound.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e.XMin, e.YMin}, Max: orb.Point{e.XMax, e.YMax}}
}
