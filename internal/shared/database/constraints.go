package database

import (
	"fmt"

	"gorm.io/gorm"
)

// constraintStatements enforce seat occupancy rules in the database
var constraintStatements = []struct {
	name string
	sql  string
}{
	{
		// a slot is occupied exactly when it points at a booking
		name: "chk_seat_slots_occupied_booking",
		sql: `DO $$ BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_seat_slots_occupied_booking') THEN
		ALTER TABLE seat_slots ADD CONSTRAINT chk_seat_slots_occupied_booking
		CHECK (occupied = (booking_id IS NOT NULL));
	END IF;
END $$;`,
	},
	{
		name: "chk_seat_slots_index",
		sql: `DO $$ BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_seat_slots_index') THEN
		ALTER TABLE seat_slots ADD CONSTRAINT chk_seat_slots_index CHECK (seat_index >= 0);
	END IF;
END $$;`,
	},
	{
		// one booking can hold one slot only
		name: "idx_seat_slots_booking",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_seat_slots_booking
	ON seat_slots (booking_id) WHERE booking_id IS NOT NULL`,
	},
	{
		name: "idx_schedules_departure",
		sql:  `CREATE INDEX IF NOT EXISTS idx_schedules_departure ON schedules (departure_time)`,
	},
}

// MigrateConstraints adds the constraints AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt.sql).Error; err != nil {
			return fmt.Errorf("failed to apply %s: %w", stmt.name, err)
		}
	}
	return nil
}
