package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SlogLogger writes audit entries as structured log records.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger constructs a logger writing to l.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (s *SlogLogger) Log(ctx context.Context, entry Entry) error {
	if s == nil || s.logger == nil {
		return errors.New("audit slog: nil logger")
	}
	entry = normalize(entry, time.Now())
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.String("audit_id", entry.ID),
		slog.String("actor", entry.Actor),
		slog.String("role", entry.Role),
		slog.String("action", entry.Action),
		slog.String("resource_type", entry.ResourceType),
		slog.String("resource_id", entry.ResourceID),
		slog.String("payload_digest", entry.PayloadDigest),
		slog.String("ip", entry.IP),
	)
	return nil
}
