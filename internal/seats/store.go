package seats

import (
	"context"
	"errors"
	"fmt"

	"busseat/internal/schedules"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrSeatConflict = errors.New("seat already occupied")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidSeat  = fmt.Errorf("seat index out of range: %w", ErrNotFound)
)

// ErrAlreadyOccupied is the same outcome as ErrSeatConflict
var ErrAlreadyOccupied = ErrSeatConflict

// Store is the authoritative seat availability for every run. Claims on
// the same (run, seat) are linearizable; claims on different seats never
// wait on each other.
type Store interface {
	// GetSeats returns the run's seat vector, creating it all-free on first use
	GetSeats(ctx context.Context, runID uuid.UUID) (SeatVector, error)
	// ClaimSeat flips one free seat to occupied and records the booking
	ClaimSeat(ctx context.Context, runID uuid.UUID, seatIndex int, rider Rider) (*Booking, error)
	// CountBookings returns the number of confirmed bookings on the run
	CountBookings(ctx context.Context, runID uuid.UUID) (int, error)
}

// RunLookup resolves the run a seat vector belongs to
type RunLookup interface {
	GetRun(ctx context.Context, id uuid.UUID) (*schedules.ScheduledRun, error)
}

func lookupRun(ctx context.Context, runs RunLookup, runID uuid.UUID) (*schedules.ScheduledRun, error) {
	run, err := runs.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, schedules.ErrRunNotFound) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if run.Capacity <= 0 {
		return nil, fmt.Errorf("run %s has no seats: %w", runID, ErrNotFound)
	}
	return run, nil
}

// prepareClaim runs the checks every backend applies before touching a slot
func prepareClaim(ctx context.Context, runs RunLookup, runID uuid.UUID, seatIndex int, rider Rider) (*schedules.ScheduledRun, error) {
	if rider.IsZero() {
		return nil, ErrUnauthorized
	}
	run, err := lookupRun(ctx, runs, runID)
	if err != nil {
		return nil, err
	}
	if seatIndex < 0 || seatIndex >= run.Capacity {
		return nil, ErrInvalidSeat
	}
	return run, nil
}
