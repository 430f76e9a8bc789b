package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestGetLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := getLogLevel(in); got != want {
			t.Errorf("getLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSeatLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "info")
	ctx := context.Background()

	l.LogSeatClaimed(ctx, "b-1", "run-1", "rider-1", 2)
	l.LogSeatConflict(ctx, "run-1", "rider-2", 2)
	l.WithRider("rider-3").ErrorWithContext(ctx, "publish failed", errors.New("broker down"), map[string]interface{}{"run_id": "run-1"})
	l.LogClaimOutcomeUnknown(ctx, "run-2", 4, errors.New("deadline exceeded"))
	l.LogSeatsResynced(ctx, "run-2", 11)

	out := buf.String()
	for _, want := range []string{"Seat Claimed", "Seat Conflict", "seat_number", "rider-3", "broker down", "Claim Outcome Unknown", "deadline exceeded", "free_count"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "warn")
	l.LogSeatsMaterialized(context.Background(), "run-1", 3)
	if buf.Len() != 0 {
		t.Fatalf("info message should be filtered at warn level, got %q", buf.String())
	}
}
