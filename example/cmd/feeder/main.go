// Standalone producer for testing the CLI.
//
// Usage:
//
//	go run ./cmd/relayboard serve -c example/relay.yaml
//
// Then in another terminal:
//
//	go run ./example/cmd/feeder -url http://localhost:3000
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	baseURL := flag.String("url", "http://localhost:3000", "relay base URL")
	every := flag.Duration("every", 500*time.Millisecond, "interval between coordinates")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	fmt.Printf("Feeding %s every %s\n", *baseURL, *every)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()

	var distance float64
	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			logger.Info("feeder stopped", "sent", n-1)
			return
		case <-ticker.C:
		}

		distance += rand.Float64() * 2
		capture := 0
		if n%10 == 0 {
			capture = 1
		}
		send(ctx, logger, client, *baseURL+"/api/coordinates", map[string]any{
			"coordinates": []any{distance, rand.Float64()*200 - 100, rand.Float64()*200 - 100, capture},
		})

		if capture == 1 {
			imageURL := fmt.Sprintf("https://picsum.photos/seed/feeder-%d/640/360", n)
			send(ctx, logger, client, *baseURL+"/api/image", map[string]any{"imageUrl": imageURL})
			send(ctx, logger, client, *baseURL+"/api/banner_data", map[string]any{
				"imageUrl": imageURL,
				"brand":    "Acme",
				"position": "finish",
				"type":     "arch",
			})
		}
	}
}

func send(ctx context.Context, logger *slog.Logger, client *http.Client, url string, body any) {
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		logger.Error("failed to build request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("post failed", "url", url, "error", err)
		}
		return
	}
	_ = resp.Body.Close()

	logger.Info("posted", "url", url, "status", resp.StatusCode)
}
