package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance writing to stdout
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger writing to w at the given level
func NewWithWriter(w io.Writer, levelStr string) *Logger {
	level := getLogLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text handler for development, JSON for production
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRider adds the rider identity to logger context
func (l *Logger) WithRider(riderID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("rider_id", riderID)),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Seat reservation logging methods

// LogSeatsMaterialized logs the lazy creation of a run's seat vector
func (l *Logger) LogSeatsMaterialized(ctx context.Context, runID string, capacity int) {
	l.Logger.InfoContext(ctx,
		"Seat Vector Materialized",
		slog.String("run_id", runID),
		slog.Int("capacity", capacity),
	)
}

// LogSeatClaimed logs a successful claim
func (l *Logger) LogSeatClaimed(ctx context.Context, bookingID, runID, riderID string, seatNumber int) {
	l.Logger.InfoContext(ctx,
		"Seat Claimed",
		slog.String("booking_id", bookingID),
		slog.String("run_id", runID),
		slog.String("rider_id", riderID),
		slog.Int("seat_number", seatNumber),
	)
}

// LogSeatConflict logs a claim that lost the race for its slot
func (l *Logger) LogSeatConflict(ctx context.Context, runID, riderID string, seatNumber int) {
	l.Logger.WarnContext(ctx,
		"Seat Conflict",
		slog.String("run_id", runID),
		slog.String("rider_id", riderID),
		slog.Int("seat_number", seatNumber),
	)
}

// Rider client logging methods

// LogClaimOutcomeUnknown logs a claim whose reply never arrived; the seat
// may or may not be ours until the next successful fetch
func (l *Logger) LogClaimOutcomeUnknown(ctx context.Context, runID string, seatNumber int, err error) {
	l.Logger.WarnContext(ctx,
		"Claim Outcome Unknown",
		slog.String("run_id", runID),
		slog.Int("seat_number", seatNumber),
		slog.String("error", err.Error()),
	)
}

// LogSeatsResynced logs a seat view replaced by the server's vector
func (l *Logger) LogSeatsResynced(ctx context.Context, runID string, freeCount int) {
	l.Logger.InfoContext(ctx,
		"Seats Resynced",
		slog.String("run_id", runID),
		slog.Int("free_count", freeCount),
	)
}

// Security logging methods

// LogAuthSuccess logs successful authentication
func (l *Logger) LogAuthSuccess(ctx context.Context, userID, method string) {
	l.Logger.InfoContext(ctx,
		"Authentication Success",
		slog.String("user_id", userID),
		slog.String("method", method),
	)
}

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
