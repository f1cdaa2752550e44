package health

import (
	"context"
	"log/slog"
)

// SlogAdapter writes health entries to an slog.Logger.
// STATUS entries are written at Info level, ERROR entries at Error level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the entry to the slog logger.
func (a *SlogAdapter) Log(entry Entry) {
	level := slog.LevelInfo
	if entry.IsError() {
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.Time("at", entry.Timestamp),
		slog.String("csc", entry.Subsystem.String()),
		slog.String("op", entry.Operation),
		slog.String("severity", entry.Severity.String()),
	}
	if entry.RunID != "" {
		attrs = append(attrs, slog.String("run_id", entry.RunID))
	}

	a.logger.LogAttrs(context.Background(), level, entry.Message, attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
