package seats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"busseat/internal/schedules"
	"busseat/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type storeFactory func(t *testing.T, runs RunLookup) Store

func storeBackends() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, runs RunLookup) Store {
			return NewMemoryStore(runs)
		},
		"redis": func(t *testing.T, runs RunLookup) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { client.Close() })
			store := NewRedisStore(client, runs)
			if err := store.PreloadScripts(context.Background()); err != nil {
				t.Fatalf("preload scripts: %v", err)
			}
			return store
		},
	}
}

func newRider(name string) Rider {
	return Rider{ID: uuid.New(), Name: name}
}

func assertVector(t *testing.T, got SeatVector, want ...bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("vector = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("vector = %v, want %v", got, want)
		}
	}
}

func assertBookingsMatchOccupied(t *testing.T, store Store, runID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	vector, err := store.GetSeats(ctx, runID)
	if err != nil {
		t.Fatalf("GetSeats: %v", err)
	}
	count, err := store.CountBookings(ctx, runID)
	if err != nil {
		t.Fatalf("CountBookings: %v", err)
	}
	if count != vector.OccupiedCount() {
		t.Fatalf("bookings = %d, occupied = %d", count, vector.OccupiedCount())
	}
}

func TestStoreGetSeats(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(4)
			store := factory(t, runs)
			ctx := context.Background()

			first, err := store.GetSeats(ctx, run.ID)
			if err != nil {
				t.Fatalf("GetSeats: %v", err)
			}
			assertVector(t, first, true, true, true, true)

			second, err := store.GetSeats(ctx, run.ID)
			if err != nil {
				t.Fatalf("GetSeats again: %v", err)
			}
			assertVector(t, second, first...)

			if _, err := store.GetSeats(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
				t.Fatalf("unknown run err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreClaimAndConflict(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(3)
			store := factory(t, runs)
			ctx := context.Background()

			booking, err := store.ClaimSeat(ctx, run.ID, 1, newRider("alice"))
			if err != nil {
				t.Fatalf("claim: %v", err)
			}
			if booking.SeatNumber() != 2 || booking.RunID != run.ID || booking.RiderName != "alice" {
				t.Fatalf("booking = %+v", booking)
			}
			if booking.Status != BookingStatusConfirmed {
				t.Fatalf("status = %s", booking.Status)
			}

			vector, _ := store.GetSeats(ctx, run.ID)
			assertVector(t, vector, true, false, true)

			if _, err := store.ClaimSeat(ctx, run.ID, 1, newRider("bob")); !errors.Is(err, ErrSeatConflict) {
				t.Fatalf("second claim err = %v, want ErrSeatConflict", err)
			}
			if !errors.Is(ErrAlreadyOccupied, ErrSeatConflict) {
				t.Fatal("ErrAlreadyOccupied must match ErrSeatConflict")
			}

			vector, _ = store.GetSeats(ctx, run.ID)
			assertVector(t, vector, true, false, true)
			assertBookingsMatchOccupied(t, store, run.ID)
		})
	}
}

func TestStoreClaimBeforeGetSeats(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(2)
			store := factory(t, runs)

			if _, err := store.ClaimSeat(context.Background(), run.ID, 0, newRider("early")); err != nil {
				t.Fatalf("claim: %v", err)
			}
			vector, _ := store.GetSeats(context.Background(), run.ID)
			assertVector(t, vector, false, true)
		})
	}
}

func TestStoreClaimRejectsInvalidInput(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(3)
			store := factory(t, runs)
			ctx := context.Background()

			cases := []struct {
				name  string
				runID uuid.UUID
				index int
				rider Rider
				want  error
			}{
				{"negative index", run.ID, -1, newRider("r"), ErrNotFound},
				{"index == capacity", run.ID, 3, newRider("r"), ErrNotFound},
				{"unknown run", uuid.New(), 0, newRider("r"), ErrNotFound},
				{"no rider", run.ID, 0, Rider{}, ErrUnauthorized},
			}
			for _, tc := range cases {
				if _, err := store.ClaimSeat(ctx, tc.runID, tc.index, tc.rider); !errors.Is(err, tc.want) {
					t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
				}
			}

			vector, _ := store.GetSeats(ctx, run.ID)
			assertVector(t, vector, true, true, true)
			assertBookingsMatchOccupied(t, store, run.ID)
		})
	}
}

func TestStoreConcurrentClaimsOneWinner(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(5)
			store := factory(t, runs)

			// each round races on a fresh seat
			for seat, n := range []int{1, 2, 16, 64} {
				var (
					wg        sync.WaitGroup
					mu        sync.Mutex
					wins      int
					conflicts int
					start     = make(chan struct{})
				)
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						<-start
						_, err := store.ClaimSeat(context.Background(), run.ID, seat, newRider("racer"))
						mu.Lock()
						defer mu.Unlock()
						switch {
						case err == nil:
							wins++
						case errors.Is(err, ErrSeatConflict):
							conflicts++
						default:
							t.Errorf("claim %d: unexpected err %v", i, err)
						}
					}(i)
				}
				close(start)
				wg.Wait()

				if wins != 1 || conflicts != n-1 {
					t.Fatalf("n=%d seat=%d: wins=%d conflicts=%d", n, seat, wins, conflicts)
				}
				assertBookingsMatchOccupied(t, store, run.ID)
			}
		})
	}
}

func TestStoreConcurrentClaimsDifferentSeats(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(2)
			store := factory(t, runs)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = store.ClaimSeat(context.Background(), run.ID, i, newRider("rider"))
				}(i)
			}
			wg.Wait()

			for i, err := range errs {
				if err != nil {
					t.Fatalf("claim seat %d: %v", i, err)
				}
			}
			vector, _ := store.GetSeats(context.Background(), run.ID)
			assertVector(t, vector, false, false)
			assertBookingsMatchOccupied(t, store, run.ID)
		})
	}
}

func TestRedisStoreWritesBookingRecord(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	runs := schedules.NewMemoryRepository()
	run := runs.AddRun(3)
	store := NewRedisStore(client, runs)

	booking, err := store.ClaimSeat(context.Background(), run.ID, 2, newRider("carol"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	key := "busseat:bookings:" + booking.ID.String()
	if got := mr.HGet(key, "rider_name"); got != "carol" {
		t.Fatalf("rider_name = %q", got)
	}
	if got := mr.HGet(key, "seat_index"); got != "2" {
		t.Fatalf("seat_index = %q", got)
	}
	if got := mr.HGet("busseat:seats:run:"+run.ID.String(), "2"); got != booking.ID.String() {
		t.Fatalf("slot holder = %q", got)
	}
}

func setStoreLogger(store Store, l *logger.Logger) {
	switch s := store.(type) {
	case *MemoryStore:
		s.logger = l
	case *RedisStore:
		s.logger = l
	case *PostgresStore:
		s.logger = l
	}
}

func TestStoreLogsMaterializationOnce(t *testing.T) {
	for name, factory := range storeBackends() {
		t.Run(name, func(t *testing.T) {
			runs := schedules.NewMemoryRepository()
			run := runs.AddRun(2)
			store := factory(t, runs)
			var logs bytes.Buffer
			setStoreLogger(store, logger.NewWithWriter(&logs, "info"))
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				if _, err := store.GetSeats(ctx, run.ID); err != nil {
					t.Fatalf("GetSeats: %v", err)
				}
			}
			if _, err := store.ClaimSeat(ctx, run.ID, 1, newRider("kim")); err != nil {
				t.Fatalf("ClaimSeat: %v", err)
			}
			vector, err := store.GetSeats(ctx, run.ID)
			if err != nil {
				t.Fatal(err)
			}
			assertVector(t, vector, true, false)

			out := logs.String()
			if n := strings.Count(out, "Seat Vector Materialized"); n != 1 {
				t.Fatalf("materialized logged %d times, want 1:\n%s", n, out)
			}
			if !strings.Contains(out, run.ID.String()) {
				t.Fatalf("log missing run id:\n%s", out)
			}
		})
	}
}
