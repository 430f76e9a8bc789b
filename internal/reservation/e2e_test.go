package reservation_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"busseat/internal/auth"
	"busseat/internal/reservation"
	"busseat/internal/schedules"
	"busseat/internal/seats"
	"busseat/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stack struct {
	server *httptest.Server
	runs   *schedules.MemoryRepository
	store  *seats.MemoryStore
}

// newStack serves the auth, schedule and seat routes in memory. Booking
// responses are held back by claimDelay so callers can outwait them.
func newStack(t *testing.T, claimDelay time.Duration) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{JWT: config.JWTConfig{Secret: "e2e-secret", JWTExpiresIn: time.Hour}}
	authService := auth.NewService(auth.NewMemoryRepository(), cfg)
	validator := auth.NewValidatorAdapter(authService)

	runRepo := schedules.NewMemoryRepository()
	scheduleService := schedules.NewService(runRepo, nil)
	store := seats.NewMemoryStore(scheduleService)

	engine := gin.New()
	api := engine.Group("/api/v1")
	auth.NewRouter(auth.NewController(authService), validator).SetupRoutes(api)
	schedules.SetupScheduleRoutes(api, schedules.NewController(scheduleService), validator)
	seats.SetupSeatRoutes(api, seats.NewController(seats.NewService(store, scheduleService, nil)), validator)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		engine.ServeHTTP(w, r)
		if claimDelay > 0 && r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/bookings") {
			time.Sleep(claimDelay)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &stack{server: srv, runs: runRepo, store: store}
}

// authTimeout leaves room for bcrypt on register and login, which is slow
// under the race detector
const authTimeout = 5 * time.Second

func (s *stack) rider(t *testing.T, name string, timeout time.Duration) (*reservation.Client, reservation.Credential, *reservation.HTTPTransport) {
	t.Helper()
	cred, err := reservation.NewHTTPTransport(s.server.URL, authTimeout).
		Register(context.Background(), name, "secret123", "user")
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	transport := reservation.NewHTTPTransport(s.server.URL, timeout)
	return reservation.NewClient(transport, reservation.NewMemoryCacheStore()), cred, transport
}

func (s *stack) run(t *testing.T, transport *reservation.HTTPTransport, capacity int) reservation.Run {
	t.Helper()
	created := s.runs.AddRun(capacity)
	runs, err := transport.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	for _, run := range runs {
		if run.ID == created.ID {
			return run
		}
	}
	t.Fatalf("run %s missing from catalog %+v", created.ID, runs)
	return reservation.Run{}
}

func TestRegisterAndLoginOverHTTP(t *testing.T) {
	s := newStack(t, 0)
	transport := reservation.NewHTTPTransport(s.server.URL, authTimeout)
	ctx := context.Background()

	cred, err := transport.Register(ctx, "carol", "secret123", "user")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !cred.Valid() || cred.Username != "carol" || cred.Role != "RIDER" {
		t.Fatalf("credential = %+v", cred)
	}

	login, err := transport.Login(ctx, "carol", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !login.Valid() || login.Username != "carol" {
		t.Fatalf("login credential = %+v", login)
	}

	_, err = transport.Login(ctx, "carol", "not-the-password")
	var apiErr *reservation.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized || !errors.Is(err, reservation.ErrUnauthorized) {
		t.Fatalf("bad login err = %v", err)
	}
}

func TestTwoRidersRaceForOneSeat(t *testing.T) {
	s := newStack(t, 0)
	alice, aliceCred, transport := s.rider(t, "alice", time.Second)
	bob, bobCred, _ := s.rider(t, "bob", time.Second)
	run := s.run(t, transport, 4)
	ctx := context.Background()

	for _, c := range []*reservation.Client{alice, bob} {
		seats, err := c.LoadSeats(ctx, run)
		if err != nil {
			t.Fatalf("load seats: %v", err)
		}
		if seats.FreeCount() != 4 {
			t.Fatalf("free = %d, want 4", seats.FreeCount())
		}
	}

	booking, err := alice.ConfirmBooking(ctx, run, 2, aliceCred)
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if booking.SeatNumber != 3 || booking.RiderIdentity != "alice" || booking.RunID != run.ID {
		t.Fatalf("booking = %+v", booking)
	}
	if alice.SlotState(run.ID, 2) != reservation.SlotOccupiedMine {
		t.Fatalf("alice sees %v", alice.SlotState(run.ID, 2))
	}

	// bob's cache still shows seat 3 free
	_, err = bob.ConfirmBooking(ctx, run, 2, bobCred)
	if !errors.Is(err, reservation.ErrSeatUnavailable) || !errors.Is(err, reservation.ErrSeatConflict) {
		t.Fatalf("bob err = %v", err)
	}
	if bob.SlotState(run.ID, 2) != reservation.SlotOccupiedOther {
		t.Fatalf("bob sees %v", bob.SlotState(run.ID, 2))
	}

	if n, _ := s.store.CountBookings(ctx, run.ID); n != 1 {
		t.Fatalf("bookings = %d, want 1", n)
	}
}

func TestSoldOutRunOverHTTP(t *testing.T) {
	s := newStack(t, 0)
	client, cred, transport := s.rider(t, "dave", time.Second)
	run := s.run(t, transport, 2)
	ctx := context.Background()

	if _, err := client.LoadSeats(ctx, run); err != nil {
		t.Fatal(err)
	}
	for seat := 0; seat < 2; seat++ {
		if _, err := client.ConfirmBooking(ctx, run, seat, cred); err != nil {
			t.Fatalf("seat %d: %v", seat+1, err)
		}
	}

	board, err := client.Board(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !board.SoldOut || board.FreeCount != 0 {
		t.Fatalf("board = %+v", board)
	}
	for _, seat := range board.Seats {
		if seat.Enabled {
			t.Fatalf("seat %d enabled on a sold out run", seat.Number)
		}
	}

	seats, err := client.Resync(ctx, run.ID)
	if err != nil || seats.FreeCount() != 0 {
		t.Fatalf("resync = %v, %v", seats, err)
	}
}

func TestTimedOutClaimResyncsToServerState(t *testing.T) {
	s := newStack(t, 500*time.Millisecond)
	client, cred, transport := s.rider(t, "erin", 150*time.Millisecond)
	run := s.run(t, transport, 3)
	ctx := context.Background()

	if _, err := client.LoadSeats(ctx, run); err != nil {
		t.Fatal(err)
	}

	_, err := client.ConfirmBooking(ctx, run, 1, cred)
	if !errors.Is(err, reservation.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}

	// the server committed the claim even though the reply never arrived
	board, err := client.Board(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if board.NeedsResync {
		t.Fatal("resync did not complete")
	}
	if board.FreeCount != 2 || board.Seats[1].Enabled {
		t.Fatalf("board = %+v", board)
	}
	if got := client.SlotState(run.ID, 1); got != reservation.SlotOccupied {
		t.Fatalf("seat 2 = %v, want occupied", got)
	}
}

func TestTransportErrorMapping(t *testing.T) {
	s := newStack(t, 0)
	_, cred, transport := s.rider(t, "frank", time.Second)
	run := s.run(t, transport, 2)
	ctx := context.Background()

	if _, err := transport.GetSeats(ctx, uuid.New()); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("unknown run err = %v", err)
	}
	if _, err := transport.ClaimSeat(ctx, reservation.ClaimRequest{RunID: run.ID, SeatNumber: 1}, cred); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := transport.ClaimSeat(ctx, reservation.ClaimRequest{RunID: run.ID, SeatNumber: 1}, cred); !errors.Is(err, reservation.ErrSeatConflict) {
		t.Fatalf("repeat claim err = %v", err)
	}

	cases := []struct {
		name string
		req  reservation.ClaimRequest
		cred reservation.Credential
		want error
	}{
		{"seat beyond capacity", reservation.ClaimRequest{RunID: run.ID, SeatNumber: 3}, cred, reservation.ErrNotFound},
		{"foreign identity", reservation.ClaimRequest{RunID: run.ID, SeatNumber: 2, RiderIdentity: "mallory"}, cred, reservation.ErrUnauthorized},
		{"bad token", reservation.ClaimRequest{RunID: run.ID, SeatNumber: 2}, reservation.Credential{Token: "forged"}, reservation.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := transport.ClaimSeat(ctx, tc.req, tc.cred); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	dead := reservation.NewHTTPTransport("http://127.0.0.1:1", 100*time.Millisecond)
	if _, err := dead.GetSeats(ctx, run.ID); !errors.Is(err, reservation.ErrTransport) {
		t.Fatalf("unreachable server err = %v", err)
	}

	seats, err := transport.GetSeats(ctx, run.ID)
	if err != nil || seats.FreeCount() != 1 {
		t.Fatalf("seats after rejected claims = %v, %v", seats, err)
	}
}
