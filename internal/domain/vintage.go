package domain

// ReferenceLayer is a polygon layer used to assign boundaries to a named place.
type ReferenceLayer struct {
	LayerID   int
	IDField   string
	NameField string
}

var (
	// UrbanRural2023 is the Stats NZ urban/rural 2023 layer.
	UrbanRural2023 = ReferenceLayer{LayerID: 111198, IDField: "UR2023_V1_00", NameField: "UR2023_V1_00_NAME"}
	// FunctionalUrbanArea2023 is the Stats NZ functional urban area 2023 layer.
	FunctionalUrbanArea2023 = ReferenceLayer{LayerID: 111270, IDField: "FUA2023_V1_00", NameField: "FUA2023_V1_00_NAME"}
)

// LandWaterRule selects how a vintage classifies land vs water areas.
type LandWaterRule string

const (
	LandWaterByAttribute  LandWaterRule = "attribute"
	LandWaterByNamePrefix LandWaterRule = "name_prefix"
)

// ReshapeStrategy selects how a vintage's mode-share survey is normalized.
type ReshapeStrategy string

const (
	ReshapeNone        ReshapeStrategy = ""
	ReshapeWide        ReshapeStrategy = "wide"
	ReshapePivotToWide ReshapeStrategy = "pivot_to_wide"
)

// Vintage is the configuration record for one statistical-area layer and the
// tables derived from it.
type Vintage struct {
	Name           string
	LayerID        int
	IndexField     string
	NameField      string
	LandWaterField string
	LandWater      LandWaterRule
	Table          string
	ModeShareTable string
	Reshape        ReshapeStrategy
}

var (
	SA12018 = Vintage{
		Name:           "sa1_2018",
		LayerID:        92210,
		IndexField:     "SA12018_V1_00",
		LandWaterField: "LANDWATER_NAME",
		LandWater:      LandWaterByAttribute,
		Table:          "sa1s",
	}
	SA22018 = Vintage{
		Name:           "sa2_2018",
		LayerID:        92212,
		IndexField:     "SA22018_V1_00",
		NameField:      "SA22018_V1_NAME",
		LandWater:      LandWaterByNamePrefix,
		Table:          "sa2s",
		ModeShareTable: "mode_share",
		Reshape:        ReshapeWide,
	}
	SA22023 = Vintage{
		Name:           "sa2_2023",
		LayerID:        111227,
		IndexField:     "SA22023_V1_00",
		NameField:      "SA22023_V1_00_NAME",
		LandWater:      LandWaterByNamePrefix,
		Table:          "sa2s_2023",
		ModeShareTable: "mode_share_2023",
		Reshape:        ReshapePivotToWide,
	}
)

// ClassifyLandWater applies the vintage's land/water rule to a feature.
func (v Vintage) ClassifyLandWater(f Feature) LandWater {
	switch v.LandWater {
	case LandWaterByNamePrefix:
		return ClassifyLandWaterByNamePrefix(f.String(v.NameField))
	default:
		return ClassifyLandWaterName(f.String(v.LandWaterField))
	}
}

// StatisticalArea builds the typed view of a boundary feature.
func (v Vintage) StatisticalArea(f Feature) StatisticalArea {
	sa := StatisticalArea{
		ID:          f.ID,
		Geometry:    f.Geometry,
		LandOrWater: v.ClassifyLandWater(f),
	}
	if name := f.String(UrbanAreaNameField); name != "" {
		sa.UrbanAreaName = &name
	}
	return sa
}
