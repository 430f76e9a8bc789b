package database

import (
	"fmt"

	"busseat/internal/schedules"
	"busseat/internal/seats"
	"busseat/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	// uuid_generate_v4() defaults depend on it
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to enable uuid-ossp: %w", err)
	}

	if err := db.AutoMigrate(
		&users.User{},
		&schedules.Bus{},
		&schedules.ScheduledRun{},
		&seats.SeatSlot{},
		&seats.Booking{},
	); err != nil {
		return err
	}

	return MigrateConstraints(db)
}
