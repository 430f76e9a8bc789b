package seats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"busseat/internal/schedules"
	"busseat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	queryMaterializeSlots = `INSERT INTO seat_slots (run_id, seat_index, occupied)
SELECT ?, g, false FROM generate_series(0, ?) AS g
ON CONFLICT (run_id, seat_index) DO NOTHING`

	querySelectSlots = `SELECT seat_index, occupied FROM seat_slots WHERE run_id = ? ORDER BY seat_index ASC`

	// The WHERE clause is the check, the SET is the flip. Postgres takes the
	// row lock on this one slot only.
	queryClaimSlot = `UPDATE seat_slots SET occupied = true, booking_id = ?
WHERE run_id = ? AND seat_index = ? AND occupied = false`

	queryInsertBooking = `INSERT INTO bookings (id, run_id, seat_index, rider_id, rider_name, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	queryCountBookings = `SELECT count(*) FROM bookings WHERE run_id = ? AND status = ?`
)

// PostgresStore keeps seat vectors in the seat_slots table, one row per seat
type PostgresStore struct {
	db     *gorm.DB
	runs   RunLookup
	now    func() time.Time
	logger *logger.Logger
}

func NewPostgresStore(db *gorm.DB, runs RunLookup) *PostgresStore {
	return &PostgresStore{db: db, runs: runs, now: time.Now, logger: logger.GetDefault()}
}

func (s *PostgresStore) materialize(ctx context.Context, run *schedules.ScheduledRun) error {
	result := s.db.WithContext(ctx).Exec(queryMaterializeSlots, run.ID, run.Capacity-1)
	if result.Error != nil {
		return fmt.Errorf("failed to materialize seats: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.LogSeatsMaterialized(ctx, run.ID.String(), run.Capacity)
	}
	return nil
}

func (s *PostgresStore) selectSlots(ctx context.Context, runID uuid.UUID) ([]SeatSlot, error) {
	var slots []SeatSlot
	if err := s.db.WithContext(ctx).Raw(querySelectSlots, runID).Scan(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	return slots, nil
}

func (s *PostgresStore) GetSeats(ctx context.Context, runID uuid.UUID) (SeatVector, error) {
	run, err := lookupRun(ctx, s.runs, runID)
	if err != nil {
		return nil, err
	}

	slots, err := s.selectSlots(ctx, runID)
	if err != nil {
		return nil, err
	}

	if len(slots) < run.Capacity {
		if err := s.materialize(ctx, run); err != nil {
			return nil, err
		}
		if slots, err = s.selectSlots(ctx, runID); err != nil {
			return nil, err
		}
	}

	if len(slots) != run.Capacity {
		return nil, fmt.Errorf("run %s has %d seat rows, want %d", runID, len(slots), run.Capacity)
	}

	vector := make(SeatVector, run.Capacity)
	for _, slot := range slots {
		if slot.SeatIndex < 0 || slot.SeatIndex >= run.Capacity {
			return nil, fmt.Errorf("run %s has seat row %d outside capacity %d", runID, slot.SeatIndex, run.Capacity)
		}
		vector[slot.SeatIndex] = !slot.Occupied
	}
	return vector, nil
}

func (s *PostgresStore) ClaimSeat(ctx context.Context, runID uuid.UUID, seatIndex int, rider Rider) (*Booking, error) {
	run, err := prepareClaim(ctx, s.runs, runID, seatIndex, rider)
	if err != nil {
		return nil, err
	}

	// A claim may arrive before anyone has viewed the seats
	if err := s.materialize(ctx, run); err != nil {
		return nil, err
	}

	booking := newBooking(runID, seatIndex, rider, s.now())
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(queryClaimSlot, booking.ID, runID, seatIndex)
		if result.Error != nil {
			return fmt.Errorf("failed to claim seat: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrSeatConflict
		}

		if err := tx.Exec(queryInsertBooking,
			booking.ID, booking.RunID, booking.SeatIndex,
			booking.RiderID, booking.RiderName, string(booking.Status), booking.CreatedAt,
		).Error; err != nil {
			return fmt.Errorf("failed to record booking: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSeatConflict) {
			return nil, ErrSeatConflict
		}
		return nil, err
	}

	return booking, nil
}

func (s *PostgresStore) CountBookings(ctx context.Context, runID uuid.UUID) (int, error) {
	if _, err := lookupRun(ctx, s.runs, runID); err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Raw(queryCountBookings, runID, string(BookingStatusConfirmed)).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return int(count), nil
}
