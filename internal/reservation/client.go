package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"busseat/pkg/cache"
	"busseat/pkg/logger"

	"github.com/google/uuid"
)

const defaultResyncTimeout = 10 * time.Second

// Client drives the rider's side of a booking. It serves seat views from a
// local cache and only reports success once the server has confirmed a claim.
type Client struct {
	transport     Transport
	cache         CacheStore
	logger        *logger.Logger
	now           func() time.Time
	resyncTimeout time.Duration

	mu sync.Mutex
	// states overlays what the snapshot cannot tell: selection and who holds a seat
	states   map[uuid.UUID]map[int]SlotState
	versions map[uuid.UUID]*runVersion
}

// runVersion orders fetches against claim outcomes for one run. Every
// fetch start and every recorded outcome takes the next generation, so a
// snapshot can tell which outcomes it has not seen.
type runVersion struct {
	gen uint64
	// claimed holds the generation at which a seat was seen taken
	claimed map[int]uint64
	// resyncAt is the generation of the last indeterminate claim
	resyncAt uint64
	// savedFrom is the start generation of the snapshot in the cache
	savedFrom uint64
}

func (v *runVersion) next() uint64 {
	v.gen++
	return v.gen
}

func NewClient(transport Transport, store CacheStore) *Client {
	return &Client{
		transport:     transport,
		cache:         store,
		logger:        logger.GetDefault(),
		now:           time.Now,
		resyncTimeout: defaultResyncTimeout,
		states:        make(map[uuid.UUID]map[int]SlotState),
		versions:      make(map[uuid.UUID]*runVersion),
	}
}

// loadEntry reads the cached entry, treating an unreadable one as a miss
func (c *Client) loadEntry(runID uuid.UUID) (*CacheEntry, bool) {
	entry, err := c.cache.Load(runID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("Discarding unreadable seat cache", "run_id", runID.String(), "error", err)
		}
		return nil, false
	}
	return entry, true
}

// LoadSeats returns the cached seat view for the run, fetching it from the
// server when nothing usable is cached
func (c *Client) LoadSeats(ctx context.Context, run Run) (SeatVector, error) {
	if entry, ok := c.loadEntry(run.ID); ok && !entry.NeedsResync &&
		(run.Capacity == 0 || len(entry.Seats) == run.Capacity) {
		return entry.Seats, nil
	}
	return c.fetch(ctx, run.ID)
}

// Resync replaces the cached view with the server's current vector
func (c *Client) Resync(ctx context.Context, runID uuid.UUID) (SeatVector, error) {
	return c.fetch(ctx, runID)
}

func (c *Client) versionLocked(runID uuid.UUID) *runVersion {
	v, ok := c.versions[runID]
	if !ok {
		v = &runVersion{claimed: make(map[int]uint64)}
		c.versions[runID] = v
	}
	return v
}

func (c *Client) fetch(ctx context.Context, runID uuid.UUID) (SeatVector, error) {
	c.mu.Lock()
	started := c.versionLocked(runID).next()
	c.mu.Unlock()

	seats, err := c.transport.GetSeats(ctx, runID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.versionLocked(runID)
	if started < v.savedFrom {
		// a fetch that began later has already landed
		if entry, ok := c.loadEntry(runID); ok {
			return entry.Seats.clone(), nil
		}
	}

	entry := newCacheEntry(runID, seats, c.now())
	// outcomes recorded while this fetch was in flight are newer than it
	for idx, at := range v.claimed {
		if at > started && idx < len(entry.Seats) && entry.Seats[idx] {
			entry.Seats[idx] = false
			entry.FreeCount--
		}
	}
	entry.NeedsResync = v.resyncAt > started
	v.savedFrom = started

	if err := c.cache.Save(entry); err != nil {
		c.logger.Warn("Failed to persist seat cache", "run_id", runID.String(), "error", err)
	}

	// keep who-holds-what only where the seat is still shown taken
	if states, ok := c.states[runID]; ok {
		for idx, state := range states {
			if !state.IsOccupied() || idx >= len(entry.Seats) || entry.Seats[idx] {
				delete(states, idx)
			}
		}
	}

	return entry.Seats.clone(), nil
}

// SelectSeat marks a seat the rider intends to book. It never contacts the
// server; a seat the cache shows as taken is rejected up front.
func (c *Client) SelectSeat(runID uuid.UUID, seatIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.loadEntry(runID)
	if !ok || entry.NeedsResync {
		return ErrResyncRequired
	}
	if !entry.Seats.isFree(seatIndex) {
		return fmt.Errorf("%w: seat %d", ErrSeatUnavailable, seatIndex+1)
	}

	c.clearSelectionLocked(runID)
	c.setStateLocked(runID, seatIndex, SlotSelected)
	return nil
}

// ConfirmBooking claims the seat on the server. Only a confirmed claim
// marks the seat as the rider's; a conflict marks it taken by someone
// else, and an unknown outcome forces a resync before the next selection.
func (c *Client) ConfirmBooking(ctx context.Context, run Run, seatIndex int, cred Credential) (*Booking, error) {
	if !cred.Valid() {
		return nil, ErrUnauthenticated
	}

	c.mu.Lock()
	entry, ok := c.loadEntry(run.ID)
	switch {
	case !ok || entry.NeedsResync:
		c.mu.Unlock()
		return nil, ErrResyncRequired
	case !entry.Seats.isFree(seatIndex):
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: seat %d", ErrSeatUnavailable, seatIndex+1)
	}
	c.clearSelectionLocked(run.ID)
	c.setStateLocked(run.ID, seatIndex, SlotSelected)
	c.mu.Unlock()

	booking, err := c.transport.ClaimSeat(ctx, ClaimRequest{
		RunID:         run.ID,
		SeatNumber:    seatIndex + 1,
		RiderIdentity: cred.Username,
	}, cred)

	switch {
	case err == nil:
		c.markOccupied(run.ID, seatIndex, SlotOccupiedMine)
		return booking, nil

	case errors.Is(err, ErrSeatConflict):
		c.logger.Info("Seat taken by another rider", "run_id", run.ID.String(), "seat_number", seatIndex+1)
		c.markOccupied(run.ID, seatIndex, SlotOccupiedOther)
		return nil, fmt.Errorf("%w: %w", ErrSeatUnavailable, err)

	case errors.Is(err, ErrTransport):
		c.logger.LogClaimOutcomeUnknown(ctx, run.ID.String(), seatIndex+1, err)
		c.markNeedsResync(run.ID)
		c.resyncAfterFailure(ctx, run.ID)
		return nil, err

	default:
		c.mu.Lock()
		c.clearSelectionLocked(run.ID)
		c.mu.Unlock()
		return nil, err
	}
}

// resyncAfterFailure refetches once. The caller's context may already be
// done, so the fetch gets its own deadline.
func (c *Client) resyncAfterFailure(ctx context.Context, runID uuid.UUID) {
	resyncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.resyncTimeout)
	defer cancel()

	seats, err := c.fetch(resyncCtx, runID)
	if err != nil {
		c.logger.Warn("Resync failed, seat view stays locked", "run_id", runID.String(), "error", err)
		return
	}
	c.logger.LogSeatsResynced(ctx, runID.String(), seats.FreeCount())
}

func (c *Client) markOccupied(runID uuid.UUID, seatIndex int, state SlotState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearSelectionLocked(runID)
	c.setStateLocked(runID, seatIndex, state)
	v := c.versionLocked(runID)
	v.claimed[seatIndex] = v.next()

	entry, ok := c.loadEntry(runID)
	if !ok || seatIndex < 0 || seatIndex >= len(entry.Seats) {
		return
	}
	if entry.Seats[seatIndex] {
		entry.Seats[seatIndex] = false
		entry.FreeCount--
	}
	if err := c.cache.Save(entry); err != nil {
		c.logger.Warn("Failed to persist seat cache", "run_id", runID.String(), "error", err)
	}
}

func (c *Client) markNeedsResync(runID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearSelectionLocked(runID)
	v := c.versionLocked(runID)
	v.resyncAt = v.next()

	entry, ok := c.loadEntry(runID)
	if !ok {
		return
	}
	entry.NeedsResync = true
	if err := c.cache.Save(entry); err != nil {
		c.logger.Warn("Failed to persist seat cache", "run_id", runID.String(), "error", err)
	}
}

func (c *Client) setStateLocked(runID uuid.UUID, seatIndex int, state SlotState) {
	states, ok := c.states[runID]
	if !ok {
		states = make(map[int]SlotState)
		c.states[runID] = states
	}
	states[seatIndex] = state
}

func (c *Client) clearSelectionLocked(runID uuid.UUID) {
	for idx, state := range c.states[runID] {
		if state == SlotSelected {
			delete(c.states[runID], idx)
		}
	}
}

func (c *Client) slotStateLocked(entry *CacheEntry, seatIndex int) SlotState {
	if seatIndex < 0 || seatIndex >= len(entry.Seats) {
		return SlotUnknown
	}
	if state, ok := c.states[entry.RunID][seatIndex]; ok {
		return state
	}
	if entry.Seats[seatIndex] {
		return SlotFree
	}
	return SlotOccupied
}

// SlotState reports one seat as the client currently sees it
func (c *Client) SlotState(runID uuid.UUID, seatIndex int) SlotState {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.loadEntry(runID)
	if !ok {
		return SlotUnknown
	}
	return c.slotStateLocked(entry, seatIndex)
}

// Board lays out the cached seats for display. A sold out run, or one
// waiting on a resync, has every control disabled.
func (c *Client) Board(runID uuid.UUID) (Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.loadEntry(runID)
	if !ok {
		return Board{}, ErrResyncRequired
	}

	board := Board{
		RunID:       runID,
		Capacity:    len(entry.Seats),
		FreeCount:   entry.FreeCount,
		SoldOut:     entry.FreeCount == 0,
		NeedsResync: entry.NeedsResync,
		Seats:       make([]SeatControl, len(entry.Seats)),
	}
	for i := range entry.Seats {
		state := c.slotStateLocked(entry, i)
		board.Seats[i] = SeatControl{
			Index:   i,
			Number:  i + 1,
			State:   state,
			Enabled: !board.SoldOut && !board.NeedsResync && !state.IsOccupied(),
		}
	}
	return board, nil
}
