package seats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"busseat/internal/schedules"
	"busseat/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errDiskFull = errors.New("could not extend file: disk full")

func newMockPostgresStore(t *testing.T, capacity int) (*PostgresStore, sqlmock.Sqlmock, schedules.ScheduledRun) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open error: %v", err)
	}

	runs := schedules.NewMemoryRepository()
	run := runs.AddRun(capacity)
	return NewPostgresStore(gdb, runs), mock, run
}

func slotRows(occupied ...bool) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"seat_index", "occupied"})
	for i, o := range occupied {
		rows.AddRow(i, o)
	}
	return rows
}

func TestPostgresGetSeatsMaterializesOnce(t *testing.T) {
	store, mock, run := newMockPostgresStore(t, 3)
	var logs bytes.Buffer
	store.logger = logger.NewWithWriter(&logs, "info")

	mock.ExpectQuery("SELECT seat_index, occupied FROM seat_slots").WillReturnRows(slotRows())
	mock.ExpectExec("INSERT INTO seat_slots").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery("SELECT seat_index, occupied FROM seat_slots").WillReturnRows(slotRows(false, false, false))
	// second read finds every row and skips the insert
	mock.ExpectQuery("SELECT seat_index, occupied FROM seat_slots").WillReturnRows(slotRows(false, true, false))

	vector, err := store.GetSeats(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetSeats: %v", err)
	}
	assertVector(t, vector, true, true, true)

	vector, err = store.GetSeats(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("GetSeats again: %v", err)
	}
	assertVector(t, vector, true, false, true)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
	if n := strings.Count(logs.String(), "Seat Vector Materialized"); n != 1 {
		t.Fatalf("materialized logged %d times, want 1:\n%s", n, logs.String())
	}
}

func TestPostgresGetSeatsUnknownRun(t *testing.T) {
	store, mock, _ := newMockPostgresStore(t, 3)

	if _, err := store.GetSeats(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unknown run must not touch the database: %v", err)
	}
}

func TestPostgresClaimSeat(t *testing.T) {
	store, mock, run := newMockPostgresStore(t, 3)

	mock.ExpectExec("INSERT INTO seat_slots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seat_slots SET occupied = true").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	booking, err := store.ClaimSeat(context.Background(), run.ID, 1, newRider("alice"))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if booking.SeatNumber() != 2 {
		t.Fatalf("seat number = %d, want 2", booking.SeatNumber())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimSeatConflictRollsBack(t *testing.T) {
	store, mock, run := newMockPostgresStore(t, 3)

	mock.ExpectExec("INSERT INTO seat_slots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seat_slots SET occupied = true").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := store.ClaimSeat(context.Background(), run.ID, 1, newRider("bob")); !errors.Is(err, ErrSeatConflict) {
		t.Fatalf("err = %v, want ErrSeatConflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimSeatBookingFailureRollsBack(t *testing.T) {
	store, mock, run := newMockPostgresStore(t, 3)

	mock.ExpectExec("INSERT INTO seat_slots").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seat_slots SET occupied = true").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(errDiskFull)
	mock.ExpectRollback()

	_, err := store.ClaimSeat(context.Background(), run.ID, 0, newRider("carol"))
	if err == nil || errors.Is(err, ErrSeatConflict) {
		t.Fatalf("err = %v, want a non-conflict failure", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("err = %v, want wrapped errDiskFull", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresClaimSeatOutOfRangeSkipsDatabase(t *testing.T) {
	store, mock, run := newMockPostgresStore(t, 3)

	for _, idx := range []int{-1, 3} {
		if _, err := store.ClaimSeat(context.Background(), run.ID, idx, newRider("r")); !errors.Is(err, ErrNotFound) {
			t.Fatalf("index %d err = %v, want ErrNotFound", idx, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresCountBookings(t *testing.T) {
	store, mock, run := newMockPostgresStore(t, 3)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := store.CountBookings(context.Background(), run.ID)
	if err != nil {
		t.Fatalf("CountBookings: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
