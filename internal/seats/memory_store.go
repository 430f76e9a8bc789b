package seats

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"busseat/pkg/logger"

	"github.com/google/uuid"
)

// MemoryStore keeps seat vectors in process. Each slot holds a pointer to
// its booking, so a slot is occupied exactly when a booking exists for it
// and the claim is a single compare-and-swap on that pointer.
type MemoryStore struct {
	runs   RunLookup
	now    func() time.Time
	logger *logger.Logger

	mu      sync.RWMutex
	vectors map[uuid.UUID][]atomic.Pointer[Booking]
}

func NewMemoryStore(runs RunLookup) *MemoryStore {
	return &MemoryStore{
		runs:    runs,
		now:     time.Now,
		logger:  logger.GetDefault(),
		vectors: make(map[uuid.UUID][]atomic.Pointer[Booking]),
	}
}

// slots returns the run's slots, materializing them on first use
func (s *MemoryStore) slots(ctx context.Context, runID uuid.UUID, capacity int) []atomic.Pointer[Booking] {
	s.mu.RLock()
	slots, ok := s.vectors[runID]
	s.mu.RUnlock()
	if ok {
		return slots
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slots, ok := s.vectors[runID]; ok {
		return slots
	}
	slots = make([]atomic.Pointer[Booking], capacity)
	s.vectors[runID] = slots
	s.logger.LogSeatsMaterialized(ctx, runID.String(), capacity)
	return slots
}

func (s *MemoryStore) GetSeats(ctx context.Context, runID uuid.UUID) (SeatVector, error) {
	run, err := lookupRun(ctx, s.runs, runID)
	if err != nil {
		return nil, err
	}

	slots := s.slots(ctx, runID, run.Capacity)
	vector := make(SeatVector, len(slots))
	for i := range slots {
		vector[i] = slots[i].Load() == nil
	}
	return vector, nil
}

func (s *MemoryStore) ClaimSeat(ctx context.Context, runID uuid.UUID, seatIndex int, rider Rider) (*Booking, error) {
	run, err := prepareClaim(ctx, s.runs, runID, seatIndex, rider)
	if err != nil {
		return nil, err
	}

	slots := s.slots(ctx, runID, run.Capacity)
	booking := newBooking(runID, seatIndex, rider, s.now())
	if !slots[seatIndex].CompareAndSwap(nil, booking) {
		return nil, ErrSeatConflict
	}

	out := *booking
	return &out, nil
}

func (s *MemoryStore) CountBookings(ctx context.Context, runID uuid.UUID) (int, error) {
	if _, err := lookupRun(ctx, s.runs, runID); err != nil {
		return 0, err
	}

	s.mu.RLock()
	slots := s.vectors[runID]
	s.mu.RUnlock()

	n := 0
	for i := range slots {
		if slots[i].Load() != nil {
			n++
		}
	}
	return n, nil
}
