package reservation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SeatVector is a snapshot of a run's seats, true meaning free
type SeatVector []bool

func (v SeatVector) FreeCount() int {
	n := 0
	for _, free := range v {
		if free {
			n++
		}
	}
	return n
}

func (v SeatVector) isFree(index int) bool {
	return index >= 0 && index < len(v) && v[index]
}

func (v SeatVector) clone() SeatVector {
	return append(SeatVector(nil), v...)
}

// Run is a scheduled run as listed by the catalog
type Run struct {
	ID            uuid.UUID `json:"id"`
	BusID         uuid.UUID `json:"bus_id"`
	StartingPoint string    `json:"starting_point"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Capacity      int       `json:"capacity"`
}

// Credential is the bearer token issued at login. It is passed to every
// call that needs it; the client keeps no session of its own.
type Credential struct {
	Token    string
	Username string
	Role     string
}

func (c Credential) Valid() bool {
	return strings.TrimSpace(c.Token) != ""
}

// Booking is a confirmed claim as returned by the server
type Booking struct {
	ID            uuid.UUID `json:"id"`
	RiderID       uuid.UUID `json:"rider_id"`
	RiderIdentity string    `json:"rider_identity"`
	RunID         uuid.UUID `json:"run_id"`
	SeatNumber    int       `json:"seat_number"`
	BusID         uuid.UUID `json:"bus_id"`
	StartingPoint string    `json:"starting_point"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// SlotState is one seat as the client sees it
type SlotState int

const (
	SlotUnknown SlotState = iota
	SlotFree
	SlotSelected
	SlotOccupiedMine
	SlotOccupiedOther
	// SlotOccupied is taken according to a snapshot, holder unknown
	SlotOccupied
)

func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotSelected:
		return "selected"
	case SlotOccupiedMine:
		return "occupied-mine"
	case SlotOccupiedOther:
		return "occupied-other"
	case SlotOccupied:
		return "occupied"
	default:
		return "unknown"
	}
}

func (s SlotState) IsOccupied() bool {
	return s == SlotOccupied || s == SlotOccupiedMine || s == SlotOccupiedOther
}

// SeatControl is one bookable seat button
type SeatControl struct {
	Index   int
	Number  int
	State   SlotState
	Enabled bool
}

// Board is what a rider sees for one run
type Board struct {
	RunID       uuid.UUID
	Capacity    int
	FreeCount   int
	SoldOut     bool
	NeedsResync bool
	Seats       []SeatControl
}

// Rows splits the seats into rows of the given width
func (b Board) Rows(width int) [][]SeatControl {
	if width <= 0 {
		width = 5
	}
	var rows [][]SeatControl
	for start := 0; start < len(b.Seats); start += width {
		end := min(start+width, len(b.Seats))
		rows = append(rows, b.Seats[start:end])
	}
	return rows
}
