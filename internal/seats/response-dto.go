package seats

import (
	"time"

	"github.com/google/uuid"
)

type BookingResponse struct {
	ID            uuid.UUID     `json:"id"`
	RiderID       uuid.UUID     `json:"rider_id"`
	RiderIdentity string        `json:"rider_identity"`
	RunID         uuid.UUID     `json:"run_id"`
	SeatNumber    int           `json:"seat_number"`
	BusID         uuid.UUID     `json:"bus_id"`
	StartingPoint string        `json:"starting_point"`
	Destination   string        `json:"destination"`
	DepartureTime time.Time     `json:"departure_time"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

type OccupancyResponse struct {
	RunID    uuid.UUID `json:"run_id"`
	Capacity int       `json:"capacity"`
	Bookings int       `json:"bookings"`
	Occupied int       `json:"occupied"`
	Free     int       `json:"free"`
}
