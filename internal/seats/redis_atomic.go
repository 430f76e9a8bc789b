package seats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"busseat/internal/shared/constants"
	"busseat/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lua script for reading a run's seats, creating them all-free on first use.
// The first element reports whether this call created them.
const luaMaterializeSeats = `
-- KEYS[1] = run slots hash
-- ARGV[1] = capacity
local slots = KEYS[1]
local capacity = tonumber(ARGV[1])

local created = 0
if redis.call("EXISTS", slots) == 0 then
    for i = 0, capacity - 1 do
        redis.call("HSET", slots, tostring(i), "")
    end
    created = 1
end

local result = {created}
for i = 0, capacity - 1 do
    local holder = redis.call("HGET", slots, tostring(i))
    if holder == false or holder == "" then
        result[i + 2] = 1
    else
        result[i + 2] = 0
    end
end
return result
`

// Lua script for claiming one seat. The check and the flip run as one
// script, so no other command can observe the slot in between.
const luaAtomicSeatClaim = `
-- KEYS[1] = run slots hash
-- KEYS[2] = booking hash
-- KEYS[3] = run bookings set
-- ARGV[1] = seat_index
-- ARGV[2] = capacity
-- ARGV[3] = booking_id
-- ARGV[4] = run_id
-- ARGV[5] = rider_id
-- ARGV[6] = rider_name
-- ARGV[7] = status
-- ARGV[8] = created_at (unix nanos)
local slots = KEYS[1]
local seat = ARGV[1]
local capacity = tonumber(ARGV[2])

if redis.call("EXISTS", slots) == 0 then
    for i = 0, capacity - 1 do
        redis.call("HSET", slots, tostring(i), "")
    end
end

local holder = redis.call("HGET", slots, seat)
if holder == false then
    return {0, "invalid_seat"}
end
if holder ~= "" then
    return {0, "occupied"}
end

redis.call("HSET", slots, seat, ARGV[3])
redis.call("HSET", KEYS[2],
    "id", ARGV[3],
    "run_id", ARGV[4],
    "seat_index", seat,
    "rider_id", ARGV[5],
    "rider_name", ARGV[6],
    "status", ARGV[7],
    "created_at", ARGV[8]
)
redis.call("SADD", KEYS[3], ARGV[3])

return {1, ARGV[3]}
`

var (
	materializeSeatsScript = redis.NewScript(luaMaterializeSeats)
	atomicSeatClaimScript  = redis.NewScript(luaAtomicSeatClaim)
)

// RedisStore keeps each run's seat vector in a hash of seat_index to the
// holding booking id ("" while free). Claims are Lua scripts, which Redis
// executes without interleaving other commands.
type RedisStore struct {
	redis  *redis.Client
	runs   RunLookup
	now    func() time.Time
	logger *logger.Logger
}

func NewRedisStore(redisClient *redis.Client, runs RunLookup) *RedisStore {
	return &RedisStore{redis: redisClient, runs: runs, now: time.Now, logger: logger.GetDefault()}
}

func (s *RedisStore) GetSeats(ctx context.Context, runID uuid.UUID) (SeatVector, error) {
	run, err := lookupRun(ctx, s.runs, runID)
	if err != nil {
		return nil, err
	}

	// Run tries EVALSHA first and falls back to EVAL when the script is not cached
	result, err := materializeSeatsScript.Run(ctx, s.redis,
		[]string{constants.RunSlotsKey(runID.String())}, run.Capacity,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute seat materialize: %w", err)
	}

	flags, ok := result.([]interface{})
	if !ok || len(flags) != run.Capacity+1 {
		return nil, fmt.Errorf("unexpected result format from Lua script")
	}
	if created, _ := flags[0].(int64); created == 1 {
		s.logger.LogSeatsMaterialized(ctx, runID.String(), run.Capacity)
	}

	vector := make(SeatVector, run.Capacity)
	for i, flag := range flags[1:] {
		free, ok := flag.(int64)
		if !ok {
			return nil, fmt.Errorf("invalid seat flag in Lua script result")
		}
		vector[i] = free == 1
	}
	return vector, nil
}

func (s *RedisStore) ClaimSeat(ctx context.Context, runID uuid.UUID, seatIndex int, rider Rider) (*Booking, error) {
	run, err := prepareClaim(ctx, s.runs, runID, seatIndex, rider)
	if err != nil {
		return nil, err
	}

	booking := newBooking(runID, seatIndex, rider, s.now())
	keys := []string{
		constants.RunSlotsKey(runID.String()),
		constants.BookingKey(booking.ID.String()),
		constants.RunBookingsKey(runID.String()),
	}
	args := []interface{}{
		strconv.Itoa(seatIndex),
		run.Capacity,
		booking.ID.String(),
		runID.String(),
		rider.ID.String(),
		rider.Name,
		string(booking.Status),
		booking.CreatedAt.UnixNano(),
	}

	result, err := atomicSeatClaimScript.Run(ctx, s.redis, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic seat claim: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) != 2 {
		return nil, fmt.Errorf("unexpected result format from Lua script")
	}

	success, ok := resultArray[0].(int64)
	if !ok {
		return nil, fmt.Errorf("invalid success flag in Lua script result")
	}

	if success == 0 {
		reason, _ := resultArray[1].(string)
		switch reason {
		case "occupied":
			return nil, ErrSeatConflict
		case "invalid_seat":
			return nil, ErrInvalidSeat
		default:
			return nil, fmt.Errorf("failed to claim seat: %s", reason)
		}
	}

	return booking, nil
}

func (s *RedisStore) CountBookings(ctx context.Context, runID uuid.UUID) (int, error) {
	if _, err := lookupRun(ctx, s.runs, runID); err != nil {
		return 0, err
	}

	n, err := s.redis.SCard(ctx, constants.RunBookingsKey(runID.String())).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return int(n), nil
}

// PreloadScripts loads Lua scripts into Redis so the first claim skips the EVAL fallback
func (s *RedisStore) PreloadScripts(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	if err := materializeSeatsScript.Load(ctx, s.redis).Err(); err != nil {
		return fmt.Errorf("failed to load seat materialize script: %w", err)
	}

	if err := atomicSeatClaimScript.Load(ctx, s.redis).Err(); err != nil {
		return fmt.Errorf("failed to load seat claim script: %w", err)
	}

	return nil
}
