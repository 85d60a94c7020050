// Package app wires the reconciliation engine, the logging router, and the
// diagnostics stream into a standalone process. The engine runs against the
// scripted host, so the daemon doubles as a soak harness for the safety-net
// ladder and the deferred-mutation replay.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"partyframes/overlay"
	"partyframes/overlay/diag"
	"partyframes/overlay/internal/hostsim"
	"partyframes/overlay/internal/observability"
	"partyframes/overlay/internal/telemetry"
	"partyframes/overlay/logging"
	loggingSinks "partyframes/overlay/logging/sinks"
)

const defaultDiagAddr = ":8090"
const tickInterval = 100 * time.Millisecond

type Config struct {
	ConfigPath    string
	Logger        telemetry.Logger
	Observability observability.Config
}

func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	overlayCfg, err := overlay.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load overlay config: %w", err)
	}

	logCfg := logging.DefaultConfig()
	if len(overlayCfg.Logging.Sinks) > 0 {
		logCfg.EnabledSinks = overlayCfg.Logging.Sinks
	}
	logCfg.MinimumSeverity = logging.ParseSeverity(overlayCfg.Logging.MinSeverity)
	logCfg.Fields = map[string]any{"component": "overlay"}
	logCfg.JSON.FilePath = overlayCfg.Logging.JSONPath

	named, closer, err := buildSinks(logCfg, telemetryLogger)
	if err != nil {
		return err
	}
	defer closer()

	router, err := logging.NewRouter(nil, logCfg, named)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	host := hostsim.New()
	host.AddElement("HostFrameSelf", overlay.SlotSelf, "gid-self")
	for i := 1; i <= overlayCfg.Members; i++ {
		host.AddElement(fmt.Sprintf("HostFrame%d", i), overlay.MemberSlot(i), overlay.GlobalID(fmt.Sprintf("gid-%d", i)))
	}

	engine, err := overlay.NewEngine(overlayCfg, overlay.Deps{
		Host:      host,
		Updater:   overlay.NopUpdater{},
		Publisher: router,
		Metrics:   &logging.Metrics{},
	})
	if err != nil {
		return fmt.Errorf("failed to construct engine: %w", err)
	}
	engine.NotifyRosterChanged()

	go func() {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				engine.Tick(now)
			}
		}
	}()

	diagServer := diag.NewServer(engine)
	stop := make(chan struct{})
	defer close(stop)
	interval := time.Duration(overlayCfg.Diagnostics.IntervalMS) * time.Millisecond
	go diagServer.Run(stop, interval)

	addr := overlayCfg.Diagnostics.Addr
	if addr == "" {
		addr = defaultDiagAddr
	}
	observabilityCfg := cfg.Observability
	if raw := os.Getenv("OVERLAY_ENABLE_PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			observabilityCfg.EnablePprof = value
		} else {
			telemetryLogger.Printf("invalid OVERLAY_ENABLE_PPROF=%q: %v", raw, err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/diagnostics", diagServer.Handler())
	observabilityCfg.Register(mux)
	srv := &http.Server{Addr: addr, Handler: mux}
	telemetryLogger.Printf("diagnostics listening on %s", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return fmt.Errorf("diagnostics server failed: %w", err)
	}
}

// buildSinks assembles the configured sinks. The returned closer releases any
// file handles after the router has flushed.
func buildSinks(cfg logging.Config, logger telemetry.Logger) ([]logging.NamedSink, func(), error) {
	var named []logging.NamedSink
	var files []*os.File

	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewConsoleSink(os.Stdout, cfg.Console)})
		case "json":
			path := cfg.JSON.FilePath
			if path == "" {
				path = "overlay-events.ndjson"
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, func() {}, fmt.Errorf("failed to open json sink: %w", err)
			}
			files = append(files, f)
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewJSON(f, cfg.JSON.FlushInterval)})
		case "memory":
			named = append(named, logging.NamedSink{Name: name, Sink: loggingSinks.NewMemorySink()})
		default:
			logger.Printf("unknown sink %q ignored", name)
		}
	}

	closer := func() {
		for _, f := range files {
			f.Close()
		}
	}
	return named, closer, nil
}
