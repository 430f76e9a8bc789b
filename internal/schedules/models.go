package schedules

import (
	"time"

	"github.com/google/uuid"
)

// Bus is a vehicle registered by an operator
type Bus struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OperatorID uuid.UUID `gorm:"type:uuid;index;not null" json:"operator_id"`
	Name       string    `gorm:"not null" json:"name"`
	TotalSeats int       `gorm:"not null;check:total_seats > 0" json:"total_seats"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScheduledRun is one departure of a bus on a route. Capacity is copied
// from the bus when the run is created and never changes afterwards.
type ScheduledRun struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	BusID         uuid.UUID `gorm:"type:uuid;index;not null" json:"bus_id"`
	StartingPoint string    `gorm:"not null" json:"starting_point"`
	Destination   string    `gorm:"not null" json:"destination"`
	DepartureTime time.Time `gorm:"not null" json:"departure_time"`
	ArrivalTime   time.Time `gorm:"not null" json:"arrival_time"`
	Capacity      int       `gorm:"not null;check:capacity > 0" json:"capacity"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Bus) TableName() string {
	return "buses"
}

func (ScheduledRun) TableName() string {
	return "schedules"
}
