package seats

import (
	"time"

	"github.com/google/uuid"
)

// SeatVector is the availability of every seat on a run, indexed from 0.
// true means the seat is free.
type SeatVector []bool

// FreeCount returns the number of free seats
func (v SeatVector) FreeCount() int {
	n := 0
	for _, free := range v {
		if free {
			n++
		}
	}
	return n
}

// OccupiedCount returns the number of occupied seats
func (v SeatVector) OccupiedCount() int {
	return len(v) - v.FreeCount()
}

// IsFree reports whether index is in range and free
func (v SeatVector) IsFree(index int) bool {
	return index >= 0 && index < len(v) && v[index]
}

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
)

// Rider is the authenticated caller a booking is made for
type Rider struct {
	ID   uuid.UUID
	Name string
}

func (r Rider) IsZero() bool {
	return r.ID == uuid.Nil
}

// Booking binds one rider to one seat on one run. At most one confirmed
// booking may exist per (run_id, seat_index).
type Booking struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	RunID     uuid.UUID     `gorm:"type:uuid;not null;index;uniqueIndex:idx_bookings_live_seat,where:status = 'CONFIRMED'" json:"run_id"`
	SeatIndex int           `gorm:"not null;uniqueIndex:idx_bookings_live_seat,where:status = 'CONFIRMED'" json:"seat_index"`
	RiderID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"rider_id"`
	RiderName string        `gorm:"not null" json:"rider_name"`
	Status    BookingStatus `gorm:"type:varchar(20);not null;default:'CONFIRMED'" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// SeatNumber is the 1-based seat number shown to riders
func (b *Booking) SeatNumber() int {
	return b.SeatIndex + 1
}

// SeatSlot is one row of a run's seat vector in Postgres
type SeatSlot struct {
	RunID     uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SeatIndex int        `gorm:"primaryKey;autoIncrement:false"`
	Occupied  bool       `gorm:"not null;default:false"`
	BookingID *uuid.UUID `gorm:"type:uuid"`
}

func (SeatSlot) TableName() string {
	return "seat_slots"
}

func newBooking(runID uuid.UUID, seatIndex int, rider Rider, now time.Time) *Booking {
	return &Booking{
		ID:        uuid.New(),
		RunID:     runID,
		SeatIndex: seatIndex,
		RiderID:   rider.ID,
		RiderName: rider.Name,
		Status:    BookingStatusConfirmed,
		CreatedAt: now.UTC(),
	}
}
