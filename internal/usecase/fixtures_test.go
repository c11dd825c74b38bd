package usecase_test

import (
	"github.com/paulmach/orb"

	"github.com/urban-indicators/internal/domain"
)

var hamilton = domain.AreaOfInterest{
	CanonicalName: "Hamilton",
	DisplayName:   "Hamilton | Kirikiriroa",
	BBox:          domain.BoundingBox{Lat1: -38.01, Lng1: 174.88, Lat2: -37.54, Lng2: 175.49},
}

var tauranga = domain.AreaOfInterest{
	CanonicalName: "Tauranga",
	DisplayName:   "Tauranga",
	BBox:          domain.BoundingBox{Lat1: -37.8, Lng1: 176.0, Lat2: -37.6, Lng2: 176.3},
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

// urbanArea is a reference layer feature covering x in [0,10), y in [0,10)
func urbanArea(name string, x, y float64) domain.Feature {
	return domain.Feature{
		ID:         1,
		Geometry:   square(x, y, 10),
		Properties: map[string]interface{}{domain.UrbanRural2023.NameField: name},
	}
}

func sa1(id int64, x, y float64, landWater string) domain.Feature {
	return domain.Feature{
		ID:       id,
		Geometry: square(x, y, 1),
		Properties: map[string]interface{}{
			domain.SA12018.IndexField:     float64(id),
			domain.SA12018.LandWaterField: landWater,
			"AREA_SQ_KM":                  0.5,
		},
	}
}

func sa2(id int64, x, y float64, name string) domain.Feature {
	return domain.Feature{
		ID:       id,
		Geometry: square(x, y, 1),
		Properties: map[string]interface{}{
			domain.SA22018.IndexField: float64(id),
			domain.SA22018.NameField:  name,
		},
	}
}

func featureSet(idField string, features ...domain.Feature) *domain.FeatureSet {
	return &domain.FeatureSet{IDField: idField, Features: features}
}

func floatPtr(v float64) *float64 {
	return &v
}
