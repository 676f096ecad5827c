package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// StartFeeder posts a simulated course to baseURL until ctx is cancelled.
// Every tick adds a coordinate; every fifth tick is a photo capture that
// also posts an image, and half of those get a banner.
func StartFeeder(ctx context.Context, baseURL string, every time.Duration) {
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var distance float64
	for tick := 0; ; tick++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		distance += 0.5 + rand.Float64()
		angle := distance / 20
		x := math.Round(100*math.Cos(angle)*100) / 100
		z := math.Round(100*math.Sin(angle)*100) / 100

		capture := 0
		if tick%5 == 4 {
			capture = 1
		}

		post(ctx, client, baseURL+"/api/coordinates", map[string]any{
			"coordinates": []any{math.Round(distance*10) / 10, x, z, capture},
		})
		if capture == 0 {
			continue
		}

		imageURL := fmt.Sprintf("https://picsum.photos/seed/relay-%d/640/360", tick)
		post(ctx, client, baseURL+"/api/image", map[string]any{"imageUrl": imageURL})

		if rand.Intn(2) == 0 {
			post(ctx, client, baseURL+"/api/banner_data", map[string]any{
				"imageUrl": imageURL,
				"brand":    []string{"Acme", "Globex", "Initech"}[rand.Intn(3)],
				"position": "trackside",
				"type":     "billboard",
			})
		}
	}
}

func post(ctx context.Context, client *http.Client, url string, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		slog.Error("feeder marshal failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		slog.Error("feeder request failed", "url", url, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("feeder post failed", "url", url, "error", err)
		}
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("feeder post rejected", "url", url, "status", resp.StatusCode)
	}
}
