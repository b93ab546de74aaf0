package monitoring

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging helpers for the service's domain events.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout.
func NewLogger() *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{Logger: slog.New(handler)}
}

// RequestLogger logs HTTP request details.
func (l *Logger) RequestLogger(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// ScoringLogger logs a propensity scoring run.
func (l *Logger) ScoringLogger(agencyID string, customers int, duration time.Duration) {
	l.Info("Scoring Run Completed",
		"agency_id", agencyID,
		"customers", customers,
		"duration_ms", duration.Milliseconds(),
	)
}

// ImportLogger logs a CSV customer import.
func (l *Logger) ImportLogger(agencyID string, accepted, rejected int, duration time.Duration) {
	l.Info("Customer Import Completed",
		"agency_id", agencyID,
		"accepted_rows", accepted,
		"rejected_rows", rejected,
		"duration_ms", duration.Milliseconds(),
	)
}

// AuthLogger logs authentication attempts. Agent identifiers are logged, PINs
// never are.
func (l *Logger) AuthLogger(agencyID, agentEmail, ip string, success, locked bool) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}

	l.Log(context.Background(), level, "Auth Attempt",
		"agency_id", agencyID,
		"agent", agentEmail,
		"ip", ip,
		"success", success,
		"locked", locked,
	)
}

// APIErrorLogger logs API errors with request context.
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
	)
}
