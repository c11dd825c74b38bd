package domain

// AreaOfInterest is a named urban area the pipeline materializes data for.
// CanonicalName must match the reference layer's name field exactly.
type AreaOfInterest struct {
	CanonicalName string      `json:"canonical_name" yaml:"canonical_name" validate:"required"`
	DisplayName   string      `json:"display_name" yaml:"display_name" validate:"required"`
	BBox          BoundingBox `json:"bounding_box" yaml:"bounding_box"`
}

// DefaultAreasOfInterest are the urban areas covered when no areas file is configured.
func DefaultAreasOfInterest() []AreaOfInterest {
	return []AreaOfInterest{
		{"Auckland", "Auckland | Tāmaki Makaurau", BoundingBox{Lat1: -36.4, Lng1: 174.300, Lat2: -37.4, Lng2: 175.3}},
		{"Hamilton", "Hamilton | Kirikiriroa", BoundingBox{Lat1: -38.01, Lng1: 174.88, Lat2: -37.54, Lng2: 175.49}},
		{"Wellington", "Wellington | Te Whanganui-a-Tara", BoundingBox{Lat1: -41.45, Lng1: 175.6, Lat2: -40.9, Lng2: 174.56}},
		{"Christchurch", "Christchurch | Ōtautahi", BoundingBox{Lat1: -43.83, Lng1: 172.15, Lat2: -43.0, Lng2: 172.825}},
		{"Oamaru", "Oamaru | Oāmaru", BoundingBox{Lat1: -44.98, Lng1: 171.02, Lat2: -45.211, Lng2: 170.81}},
		{"Queenstown", "Tāhuna", BoundingBox{Lat1: -45.0981, Lng1: 168.4859, Lat2: -44.8418, Lng2: 169.1003}},
	}
}
