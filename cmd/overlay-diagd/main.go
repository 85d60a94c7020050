// Command overlay-diagd runs the reconciliation engine against the scripted
// host and serves live snapshots over the diagnostics WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"partyframes/overlay/internal/app"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a TOML profile (defaults apply when empty)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: configPath}); err != nil {
		log.Fatalf("%v", err)
	}
}
