package domain

// FlowSheetsTable persists published sheet urls, one row per urban area.
const FlowSheetsTable = "flow_sheets"

// FlowPublicationRecord maps an urban area to its published flow sheet.
type FlowPublicationRecord struct {
	UrbanAreaName string `json:"urban_area_name" db:"urban_area_name"`
	SheetURL      string `json:"external_sheet_url" db:"external_sheet_url"`
}

// FlowLocation is an SA2 centroid shown on the flow map.
type FlowLocation struct {
	ID   int64   `json:"id" db:"id"`
	Name string  `json:"name" db:"name"`
	Lat  float64 `json:"lat" db:"lat"`
	Lon  float64 `json:"lon" db:"lon"`
}

// Flow is an origin/destination count for one category.
type Flow struct {
	Origin int64 `json:"origin"`
	Dest   int64 `json:"dest"`
	Count  int64 `json:"count"`
}

// FlowDataset is everything published for one urban area.
type FlowDataset struct {
	UrbanAreaName string
	DisplayName   string
	Locations     []FlowLocation
	// Categories keeps sheet order; Flows is keyed by category.
	Categories []string
	Flows      map[string][]Flow
}

// FlowCategory is a published flow sheet computed as a sum of mode columns.
type FlowCategory struct {
	Name  string
	Modes []string
}

// FlowCategories aggregate the 2018 mode-share columns into flow map sheets.
var FlowCategories = []FlowCategory{
	{Name: "Active_Transport", Modes: []string{"Walk_or_jog", "Bicycle"}},
	{Name: "Public_Transport", Modes: []string{"Public_bus", "Train", "Ferry"}},
	{Name: "Drive", Modes: []string{"Drive_a_private_car_truck_or_van", "Drive_a_company_car_truck_or_van"}},
	{Name: "Passenger_Car_Truck_Van_Co_Bus", Modes: []string{"Passenger_in_a_car_truck_van_or_company_bus"}},
	{Name: "Other", Modes: []string{"Other"}},
	{Name: "Total", Modes: []string{"Total"}},
}

// PublishState is the per-area state of the flow publisher.
type PublishState string

const (
	PublishPending         PublishState = "pending"
	PublishWriting         PublishState = "writing"
	PublishPermissionCheck PublishState = "permission_check"
	PublishRateLimited     PublishState = "rate_limited"
	PublishDone            PublishState = "done"
	PublishFailed          PublishState = "failed"
)
