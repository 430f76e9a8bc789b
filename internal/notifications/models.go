package notifications

import (
	"encoding/json"
	"time"

	"busseat/internal/seats"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeBookingConfirmed EventType = "BOOKING_CONFIRMED"
)

// BookingEvent is the message published after a seat claim succeeds
type BookingEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          EventType `json:"type"`
	BookingID     uuid.UUID `json:"booking_id"`
	RunID         uuid.UUID `json:"run_id"`
	RiderID       uuid.UUID `json:"rider_id"`
	RiderIdentity string    `json:"rider_identity"`
	SeatNumber    int       `json:"seat_number"`
	BusID         uuid.UUID `json:"bus_id"`
	StartingPoint string    `json:"starting_point"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewBookingConfirmedEvent(booking *seats.BookingResponse) *BookingEvent {
	return &BookingEvent{
		ID:            uuid.New(),
		Type:          EventTypeBookingConfirmed,
		BookingID:     booking.ID,
		RunID:         booking.RunID,
		RiderID:       booking.RiderID,
		RiderIdentity: booking.RiderIdentity,
		SeatNumber:    booking.SeatNumber,
		BusID:         booking.BusID,
		StartingPoint: booking.StartingPoint,
		Destination:   booking.Destination,
		DepartureTime: booking.DepartureTime,
		CreatedAt:     booking.CreatedAt,
	}
}

func (e *BookingEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// GetPartitionKey keeps every event for one run on one partition, in order
func (e *BookingEvent) GetPartitionKey() string {
	return e.RunID.String()
}
