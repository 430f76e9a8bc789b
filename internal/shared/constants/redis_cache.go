package constants

import (
	"time"
)

// Redis key layout
// Pattern: busseat:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "busseat"
)

// Catalog listings (safe to serve slightly stale; invalidated on write)
const (
	CACHE_KEY_SCHEDULES_LIST = CACHE_PREFIX + ":schedules:list"
	CACHE_KEY_BUSES_LIST     = CACHE_PREFIX + ":buses:list"

	TTL_SCHEDULES_LIST = 1 * time.Minute
	TTL_BUSES_LIST     = 5 * time.Minute
)

// Authoritative seat state (never expires)
const (
	// + run-id, hash of seat_index -> booking-id ("" when free)
	SEAT_KEY_RUN_SLOTS = CACHE_PREFIX + ":seats:run:"
	// + booking-id, hash of booking fields
	SEAT_KEY_BOOKING = CACHE_PREFIX + ":bookings:"
	// + run-id, set of booking ids on that run
	SEAT_KEY_RUN_BOOKINGS = CACHE_PREFIX + ":bookings:run:"
)

// Rate limiting
const (
	RATE_LIMIT_PREFIX = CACHE_PREFIX + ":ratelimit:"
)

// RunSlotsKey returns the Redis hash holding a run's seat vector
func RunSlotsKey(runID string) string {
	return SEAT_KEY_RUN_SLOTS + runID
}

// BookingKey returns the Redis hash holding one booking
func BookingKey(bookingID string) string {
	return SEAT_KEY_BOOKING + bookingID
}

// RunBookingsKey returns the Redis set of booking ids for a run
func RunBookingsKey(runID string) string {
	return SEAT_KEY_RUN_BOOKINGS + runID
}
