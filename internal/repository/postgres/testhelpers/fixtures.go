package testhelpers

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ModeShareFixture creates small sa2s and mode_share tables: three SA2s in
// Hamilton, one in Auckland, and flows between them.
var ModeShareFixture = []string{
	`CREATE TABLE sa2s (
		"SA22018_V1_00" bigint PRIMARY KEY,
		"SA22018_V1_NAME" text,
		"UR2023_V1_00_NAME" text,
		geometry geometry(Geometry, 4326)
	)`,
	`INSERT INTO sa2s VALUES
		(100, 'Hamilton Central', 'Hamilton', ST_GeomFromText('POLYGON((175.0 -37.0, 175.2 -37.0, 175.2 -37.2, 175.0 -37.2, 175.0 -37.0))', 4326)),
		(101, 'Frankton', 'Hamilton', ST_GeomFromText('POLYGON((175.2 -37.0, 175.4 -37.0, 175.4 -37.2, 175.2 -37.2, 175.2 -37.0))', 4326)),
		(102, 'Hillcrest', 'Hamilton', ST_GeomFromText('POLYGON((175.4 -37.0, 175.6 -37.0, 175.6 -37.2, 175.4 -37.2, 175.4 -37.0))', 4326)),
		(200, 'Ponsonby', 'Auckland', ST_GeomFromText('POLYGON((174.7 -36.8, 174.8 -36.8, 174.8 -36.9, 174.7 -36.9, 174.7 -36.8))', 4326))`,
	`CREATE TABLE mode_share (
		"SA2_code_usual_residence_address" bigint,
		"SA2_code_workplace_address" bigint,
		"Work_at_home" bigint,
		"Drive_a_private_car_truck_or_van" bigint,
		"Drive_a_company_car_truck_or_van" bigint,
		"Passenger_in_a_car_truck_van_or_company_bus" bigint,
		"Public_bus" bigint,
		"Train" bigint,
		"Bicycle" bigint,
		"Walk_or_jog" bigint,
		"Ferry" bigint,
		"Other" bigint,
		"Total" bigint,
		PRIMARY KEY ("SA2_code_usual_residence_address", "SA2_code_workplace_address")
	)`,
	`INSERT INTO mode_share VALUES
		(100, 101, 0, 10, 2, 3, 4, 0, 1, 5, 0, 1, 26),
		(101, 102, 1, 6, 0, 1, 0, 0, 2, 2, 0, 0, 11),
		(100, 200, 0, 3, 0, 0, 0, 0, 0, 0, 0, 0, 3)`,
}

// LoadFixtures executes fixture statements in order
func LoadFixtures(ctx context.Context, db *sqlx.DB, statements []string) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("load fixture statement %d: %w", i, err)
		}
	}
	return nil
}
