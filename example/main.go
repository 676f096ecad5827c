package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/relayboard"
)

func main() {
	rb, err := relayboard.New(
		relayboard.WithPort(8080),
		relayboard.WithTitle("RelayBoard Demo"),
		relayboard.WithCoordinateLimit(200),
		relayboard.WithMetrics(true),
		relayboard.WithEventCallback(func(ev relayboard.Event) {
			if ev.Name == relayboard.EventNewImage {
				slog.Info("photo captured", "event", ev.Name, "data", string(ev.Data))
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create relayboard", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   RelayBoard Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A simulated course is fed every second:             ║")
	fmt.Println("  ║   • coordinates on every tick                         ║")
	fmt.Println("  ║   • a photo and maybe a banner every fifth tick       ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// feed the relay once it is listening (see feeder.go)
	go func() {
		for rb.Addr() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
		StartFeeder(ctx, fmt.Sprintf("http://localhost:%d", rb.Port()), time.Second)
	}()

	if err := rb.Start(ctx); err != nil {
		slog.Error("relayboard error", "error", err)
		os.Exit(1)
	}
}
