package logging_test

import (
	"context"
	"testing"
	"time"

	"partyframes/overlay/logging"
	"partyframes/overlay/logging/sinks"
)

func fixedClock(t time.Time) logging.Clock {
	return logging.ClockFunc(func() time.Time { return t })
}

func TestRouterDeliversToMemorySink(t *testing.T) {
	mem := sinks.NewMemorySink()
	stamp := time.Unix(5000, 0)
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityInfo

	router, err := logging.NewRouter(fixedClock(stamp), cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     "map_rebuilt",
		Seq:      7,
		Subject:  logging.SubjectRef{ID: "engine", Kind: logging.SubjectKindEngine},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryReconcile,
	})
	router.Publish(context.Background(), logging.Event{
		Type:     "resolve_trace",
		Severity: logging.SeverityDebug,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event past the severity filter, got %d", len(events))
	}
	got := events[0]
	if got.Type != "map_rebuilt" || got.Seq != 7 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if !got.Time.Equal(stamp) {
		t.Fatalf("expected event stamped with the injected clock, got %v", got.Time)
	}

	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	mem := sinks.NewMemorySink()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"component": "overlay", "seq": "router"}

	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	router.Publish(context.Background(), logging.Event{
		Type:     "mutation_deferred",
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"seq": "caller"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Extra["component"] != "overlay" {
		t.Fatalf("expected configured field merged, got %v", events[0].Extra)
	}
	if events[0].Extra["seq"] != "caller" {
		t.Fatalf("caller-supplied extra must win, got %v", events[0].Extra)
	}
}

func TestRouterIgnoresAfterClose(t *testing.T) {
	mem := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	router.Publish(context.Background(), logging.Event{Type: "map_rebuilt", Severity: logging.SeverityInfo})
	if got := router.Stats().EventsTotal; got != 0 {
		t.Fatalf("expected publish after close ignored, got %d events", got)
	}
}

func TestRouterSinkLookup(t *testing.T) {
	mem := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, logging.DefaultConfig(), []logging.NamedSink{{Name: "memory", Sink: mem}})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		router.Close(ctx)
	}()

	if got := router.Sink("memory"); got != mem {
		t.Fatalf("expected memory sink returned, got %T", got)
	}
	if got := router.Sink("missing"); got != nil {
		t.Fatalf("expected nil for unknown sink, got %T", got)
	}
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		raw  string
		want logging.Severity
	}{
		{"debug", logging.SeverityDebug},
		{"info", logging.SeverityInfo},
		{"warn", logging.SeverityWarn},
		{"warning", logging.SeverityWarn},
		{"error", logging.SeverityError},
		{"", logging.SeverityInfo},
		{"verbose", logging.SeverityInfo},
	}
	for _, tc := range cases {
		if got := logging.ParseSeverity(tc.raw); got != tc.want {
			t.Fatalf("ParseSeverity(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestConfigHasSink(t *testing.T) {
	cfg := logging.DefaultConfig()
	if !cfg.HasSink("console") {
		t.Fatalf("expected default console sink enabled")
	}
	if cfg.HasSink("json") {
		t.Fatalf("json sink should not be enabled by default")
	}
}

func TestWithFieldsPublisher(t *testing.T) {
	var captured logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = event
	})

	pub := logging.WithFields(base, map[string]any{"pool": "host"})
	pub.Publish(context.Background(), logging.Event{
		Type:  "driver_migrated",
		Extra: map[string]any{"slot": "member-1"},
	})

	if captured.Extra["pool"] != "host" {
		t.Fatalf("expected field merged, got %v", captured.Extra)
	}
	if captured.Extra["slot"] != "member-1" {
		t.Fatalf("expected caller extra preserved, got %v", captured.Extra)
	}

	if got := logging.WithFields(nil, map[string]any{"a": 1}); got == nil {
		t.Fatalf("expected non-nil fallback publisher")
	}
}
