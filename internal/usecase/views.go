package usecase

import (
	"github.com/urban-indicators/internal/domain"
)

// Map-server workspaces
const (
	EmissionsWorkspace = "sa1_emissions"
	ModeShareWorkspace = "sa2_mode_share"
)

// Emissions metric columns as read from the workbook
const (
	vktColumn = `"VKT ('000 km/Year)"`
	co2Column = `"CO2 (Tonnes/Year)"`
)

var sa1Geometry = &domain.GeometryDescriptor{Name: domain.GeometryColumn, Type: "Geometry", SRID: -1}

const vktSumSQL = `SELECT fuel_type,
       "UR2023_V1_00_NAME",
       SUM(` + vktColumn + `) AS "VKT",
       SUM(` + co2Column + `) AS "CO2"
FROM sa1s
    INNER JOIN vehicle_stats vs ON sa1s."SA12018_V1_00" = vs."SA12018_V1_00"
GROUP BY fuel_type, "UR2023_V1_00_NAME"
ORDER BY "UR2023_V1_00_NAME", "VKT" DESC`

const allCarsSQL = `SELECT sa1s."SA12018_V1_00",
       "geometry",
       "AREA_SQ_KM",
       "UR2023_V1_00_NAME",
       SUM(` + vktColumn + `) AS "VKT",
       SUM(CASE WHEN fuel_type ILIKE 'Petrol' THEN ` + co2Column + ` END) AS "CO2_Petrol",
       SUM(CASE WHEN fuel_type ILIKE 'Diesel' THEN ` + co2Column + ` END) AS "CO2_Diesel",
       SUM(CASE WHEN fuel_type ILIKE 'Electric' THEN ` + co2Column + ` END) AS "CO2_Electric",
       SUM(CASE WHEN fuel_type ILIKE 'Hybrid' THEN ` + co2Column + ` END) AS "CO2_Hybrid",
       SUM(CASE WHEN fuel_type ILIKE 'Plugin Hybrid' THEN ` + co2Column + ` END) AS "CO2_Plugin_Hybrid"
FROM vehicle_stats
    JOIN sa1s ON vehicle_stats."SA12018_V1_00" = sa1s."SA12018_V1_00"
GROUP BY sa1s."SA12018_V1_00", "geometry", "AREA_SQ_KM", "UR2023_V1_00_NAME"`

// %FUEL_TYPE% is substituted by the map server; the trailing % is a LIKE wildcard
const fuelTypeSQL = `SELECT sa1s."SA12018_V1_00",
       geometry,
       "UR2023_V1_00_NAME",
       "AREA_SQ_KM",
       ` + co2Column + ` AS "CO2",
       ` + vktColumn + ` AS "VKT"
FROM sa1s
    INNER JOIN vehicle_stats vs ON sa1s."SA12018_V1_00" = vs."SA12018_V1_00"
WHERE fuel_type ILIKE '%FUEL_TYPE%%'`

const modeShareSQL = `SELECT "SA2_code_usual_residence_address",
       "SA2_code_workplace_address",
       "Work_at_home",
       "Passenger_in_a_car_truck_van_or_company_bus",
       ("Drive_a_private_car_truck_or_van" + "Drive_a_company_car_truck_or_van") AS "Drive",
       ("Public_bus" + "Train" + "Ferry") AS "Public_transport",
       ("Walk_or_jog" + "Bicycle") AS "Active_transport",
       "Other",
       "Total"
FROM mode_share`

// EmissionsViews are the layers published over the SA1 emissions tables
func EmissionsViews(store string) domain.WorkspaceViews {
	return domain.WorkspaceViews{
		Workspace: EmissionsWorkspace,
		DataStore: store,
		Views: []domain.ViewDefinition{
			{Name: domain.SA12018.Table},
			{Name: "vkt_sum", SQL: vktSumSQL},
			{Name: "sa1_emissions_all_cars", SQL: allCarsSQL, Geometry: sa1Geometry},
			{
				Name:     "sa1_emissions_fuel_type",
				SQL:      fuelTypeSQL,
				Geometry: sa1Geometry,
				Parameters: []domain.ViewParameter{
					{Name: "FUEL_TYPE", Validator: `^[\w\s]+$`},
				},
			},
		},
	}
}

// ModeShareViews are the layers published over the SA2 mode-share tables.
// The 2023 tables are included only when they were built.
func ModeShareViews(store string, with2023 bool) domain.WorkspaceViews {
	views := []domain.ViewDefinition{
		{Name: domain.SA22018.Table},
		{Name: domain.SA22018.ModeShareTable, SQL: modeShareSQL},
	}
	if with2023 {
		views = append(views,
			domain.ViewDefinition{Name: domain.SA22023.Table},
			domain.ViewDefinition{Name: domain.SA22023.ModeShareTable},
		)
	}
	return domain.WorkspaceViews{Workspace: ModeShareWorkspace, DataStore: store, Views: views}
}

// FlowSheetsView publishes the flow sheet urls once the table exists
func FlowSheetsView(store string) domain.WorkspaceViews {
	return domain.WorkspaceViews{
		Workspace: ModeShareWorkspace,
		DataStore: store,
		Views:     []domain.ViewDefinition{{Name: domain.FlowSheetsTable}},
	}
}
