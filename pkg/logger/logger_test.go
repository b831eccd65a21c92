package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if Named("poller") == nil {
		t.Fatal("named logger is nil")
	}
}

func TestLoggerFields(t *testing.T) {
	defer func() { _ = SetLevelString("info") }()

	var buf bytes.Buffer
	l := New(&buf, false).Named("poller").With(String("endpoint", "metrics"))

	l.Info(context.Background(), "poll finished",
		Int("points", 3),
		Int64("status", 200),
		Float64("db_ms", 120.5),
		Bool("up", true),
		Duration("latency", 250*time.Millisecond),
		Error(errors.New("boom")),
		Any("tags", []string{"a"}),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line %q: %v", buf.String(), err)
	}

	want := map[string]interface{}{
		"level":    "info",
		"message":  "poll finished",
		"logger":   "poller",
		"endpoint": "metrics",
		"points":   float64(3),
		"status":   float64(200),
		"db_ms":    120.5,
		"up":       true,
		"error":    "boom",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("unexpected %s: expected %v but got %v", k, v, entry[k])
		}
	}
}

func TestSetLevelString(t *testing.T) {
	defer func() { _ = SetLevelString("info") }()

	var buf bytes.Buffer
	l := New(&buf, false)
	ctx := context.Background()

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info(ctx, "hidden")
	l.Debug(ctx, "hidden")
	l.Warn(ctx, "shown")
	l.Error(ctx, "shown")

	if n := strings.Count(buf.String(), "shown"); n != 2 {
		t.Errorf("expected 2 lines but got %d: %s", n, buf.String())
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("disabled levels were written: %s", buf.String())
	}

	for _, level := range []string{"debug", "INFO", " warning ", "error", ""} {
		if err := SetLevelString(level); err != nil {
			t.Errorf("unexpected error for %q: %v", level, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNop(t *testing.T) {
	l := Nop().Named("x").With(Error(errors.New("ignored")))
	l.Info(context.Background(), "discarded")
}
