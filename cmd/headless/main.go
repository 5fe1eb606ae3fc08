// Command headless runs the AMP core - playback, caching, suggestions,
// scrobbling - without a window, driven entirely through the embedded
// remote-control HTTP server. It is the same per-user core cmd/desktop
// and cmd/mobile build on top of, just without Fyne.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Alexander-D-Karpov/amp/internal/config"
	"github.com/Alexander-D-Karpov/amp/internal/headless"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug mode - shows detailed logging for all components")
	Version    = "dev"
)

func main() {
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("[MAIN] Debug mode enabled - all components will log detailed information")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] Failed to load config: %v", err)
	}
	if *debug {
		cfg.Debug = true
	}
	if !cfg.Remote.Enabled {
		log.Printf("[MAIN] remote.enabled is false in config - headless has no other control surface, enabling it for this run")
		cfg.Remote.Enabled = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := headless.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("[MAIN] Failed to create app: %v", err)
	}
	app.Start()

	log.Printf("[MAIN] headless core running (version %s)", Version)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.Printf("[MAIN] Received signal: %v", sig)
	log.Printf("[MAIN] Initiating graceful shutdown...")

	cancel()
	app.Close()

	log.Printf("[MAIN] Graceful shutdown completed")
}
