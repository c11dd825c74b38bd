package domain

import (
	"strings"

	"github.com/paulmach/orb"
)

// UrbanAreaNameField is the annotation column added to every filtered feature.
const UrbanAreaNameField = "UR2023_V1_00_NAME"

// GeometryColumn is the name of the geometry column in persisted boundary tables.
const GeometryColumn = "geometry"

// LandWater classifies a statistical area by its land/water designation.
type LandWater string

const (
	LandWaterMainland    LandWater = "Mainland"
	LandWaterInlet       LandWater = "Inlet"
	LandWaterInlandWater LandWater = "Inland Water"
	LandWaterOceanic     LandWater = "Oceanic"
	LandWaterOther       LandWater = "Other"
)

// Feature is a single vector feature as returned by the boundary provider.
// Geometry is never modified after fetch.
type Feature struct {
	ID         int64
	Geometry   orb.Geometry
	Properties map[string]interface{}
}

// String returns a property as string, empty when absent or not a string.
func (f Feature) String(key string) string {
	if v, ok := f.Properties[key].(string); ok {
		return v
	}
	return ""
}

// FeatureSet is an ordered collection of features sharing an id field.
type FeatureSet struct {
	IDField  string
	Features []Feature
}

// Len returns the number of features.
func (fs FeatureSet) Len() int {
	return len(fs.Features)
}

// StatisticalArea is the typed view of a boundary feature used for
// classification and persisted as one row of a boundary table.
type StatisticalArea struct {
	ID            int64
	Geometry      orb.Geometry
	LandOrWater   LandWater
	UrbanAreaName *string
}

// ClassifyLandWaterName maps a LANDWATER_NAME attribute to LandWater.
func ClassifyLandWaterName(name string) LandWater {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainland":
		return LandWaterMainland
	case "inlet":
		return LandWaterInlet
	case "inland water":
		return LandWaterInlandWater
	case "oceanic":
		return LandWaterOceanic
	default:
		return LandWaterOther
	}
}

// ClassifyLandWaterByNamePrefix derives LandWater from an area name such as
// "Inlet Waitemata Harbour" for layers without a land/water attribute.
func ClassifyLandWaterByNamePrefix(name string) LandWater {
	switch {
	case strings.HasPrefix(name, "Inlet"):
		return LandWaterInlet
	case strings.HasPrefix(name, "Inland water"):
		return LandWaterInlandWater
	case strings.HasPrefix(name, "Oceanic"):
		return LandWaterOceanic
	default:
		return LandWaterMainland
	}
}
