package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestNopTracer(t *testing.T) {
	tracer := NopTracer()
	ctx := context.Background()
	ctx2, span := tracer.StartSpan(ctx, "test")
	if ctx2 != ctx {
		t.Fatalf("nop tracer should return same context")
	}
	span.SetTag("key", "value")
	span.SetError(nil)
	span.Finish()
}

func TestSlogLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlog(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	log.With(String("font", "Helvetica")).Warn("embed failed",
		Int("page", 2),
		Float("scale", 1.5),
		Bool("fallback", true),
		Error("error", errors.New("bad glyf")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["msg"] != "embed failed" || rec["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["font"] != "Helvetica" || rec["error"] != "bad glyf" || rec["fallback"] != true {
		t.Fatalf("fields not carried: %v", rec)
	}
	if rec["page"].(float64) != 2 || rec["scale"].(float64) != 1.5 {
		t.Fatalf("numeric fields not carried: %v", rec)
	}
}

func TestSlogLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlog(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	log.Debug("hidden")
	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("records below the handler level were written: %q", buf.String())
	}
	NewSlog(nil).Error("discarded")
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(NopLogger); !ok {
		t.Fatalf("nil logger should become NopLogger")
	}
	l := NewSlog(nil)
	if OrNop(l) != Logger(l) {
		t.Fatalf("non-nil logger should be returned unchanged")
	}
}
