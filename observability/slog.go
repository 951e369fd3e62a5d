package observability

import (
	"context"
	"log/slog"
)

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlog wraps sl. A nil logger discards everything.
func NewSlog(sl *slog.Logger) *SlogLogger {
	if sl == nil {
		sl = slog.New(slog.DiscardHandler)
	}
	return &SlogLogger{l: sl}
}

func (s *SlogLogger) Debug(msg string, fields ...Field) { s.log(slog.LevelDebug, msg, fields) }
func (s *SlogLogger) Info(msg string, fields ...Field)  { s.log(slog.LevelInfo, msg, fields) }
func (s *SlogLogger) Warn(msg string, fields ...Field)  { s.log(slog.LevelWarn, msg, fields) }
func (s *SlogLogger) Error(msg string, fields ...Field) { s.log(slog.LevelError, msg, fields) }

func (s *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{l: s.l.With(attrs(fields)...)}
}

func (s *SlogLogger) log(level slog.Level, msg string, fields []Field) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, msg, attrs(fields)...)
}

func attrs(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value().(type) {
		case error:
			if v == nil {
				out = append(out, slog.String(f.Key(), ""))
				continue
			}
			out = append(out, slog.String(f.Key(), v.Error()))
		default:
			out = append(out, slog.Any(f.Key(), v))
		}
	}
	return out
}
