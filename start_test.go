package relayboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startRelay runs rb.Start in the background and waits until it is serving.
// The returned function cancels and waits for Start to return.
func startRelay(t *testing.T, rb *RelayBoard) (baseURL string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rb.Start(ctx)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for rb.Addr() == nil {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("relay did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopped := false
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start() returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Start() did not return after context cancellation")
		}
	}
	t.Cleanup(stop)

	return fmt.Sprintf("http://localhost:%d", rb.Port()), stop
}

// TestStart_BlocksUntilContextCancelled verifies that Start blocks until the
// provided context is cancelled.
func TestStart_BlocksUntilContextCancelled(t *testing.T) {
	rb, err := New(WithPort(19301), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- rb.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("Start() returned early with error: %v", err)
	default:
		// expected: still blocking
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancellation")
	}

	if rb.Addr() != nil {
		t.Errorf("Addr() after shutdown = %v, want nil", rb.Addr())
	}
}

// TestStart_ReturnsImmediatelyIfContextAlreadyCancelled verifies that Start
// returns immediately if the context is already cancelled.
func TestStart_ReturnsImmediatelyIfContextAlreadyCancelled(t *testing.T) {
	rb, err := New(WithPort(19302), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- rb.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return with already-cancelled context")
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	ln, err := net.Listen("tcp", ":19303")
	if err != nil {
		t.Skipf("port 19303 unavailable: %v", err)
	}
	defer func() { _ = ln.Close() }()

	rb, err := New(WithPort(19303), WithLogger(testLogger()), WithEventCallback(func(Event) {}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = rb.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to start HTTP server") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestStart_MultipleSequentialRuns verifies that each run starts with empty
// history.
func TestStart_MultipleSequentialRuns(t *testing.T) {
	for i := 0; i < 3; i++ {
		rb, err := New(WithPort(19304+i), WithLogger(testLogger()))
		if err != nil {
			t.Fatalf("iteration %d: New() error = %v", i, err)
		}

		base, stop := startRelay(t, rb)

		var coords []json.RawMessage
		getJSON(t, base+"/api/coordinates", &coords)
		if len(coords) != 0 {
			t.Errorf("iteration %d: new run has %d coordinates", i, len(coords))
		}
		postJSON(t, base+"/api/coordinates", `{"coordinates":[1,2,3]}`, http.StatusOK)

		stop()
	}
}

// TestStart_EndToEnd exercises the public API against a running relay.
func TestStart_EndToEnd(t *testing.T) {
	rb, err := New(
		WithPort(19310),
		WithLogger(testLogger()),
		WithCoordinateLimit(2),
		WithTitle("E2E Relay"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	base, _ := startRelay(t, rb)

	postJSON(t, base+"/api/coordinates", `{"coordinates":[1,0,0]}`, http.StatusOK)
	postJSON(t, base+"/api/coordinates", `{"coordinates":[2,0,0]}`, http.StatusOK)
	postJSON(t, base+"/api/coordinates", `{"coordinates":[3,0,0,1]}`, http.StatusOK)
	postJSON(t, base+"/api/image", `{"imageUrl":"https://cdn.example.com/p.jpg"}`, http.StatusOK)
	postJSON(t, base+"/api/banner_data",
		`{"imageUrl":"https://cdn.example.com/p.jpg","brand":"Acme","position":"top","type":"logo"}`,
		http.StatusCreated)

	var coords []struct {
		Distance float64 `json:"distance"`
	}
	getJSON(t, base+"/api/coordinates", &coords)
	if len(coords) != 2 || coords[0].Distance != 2 || coords[1].Distance != 3 {
		t.Errorf("coordinates = %+v, want distances 2 and 3", coords)
	}

	var images []struct {
		URL      string         `json:"url"`
		Metadata map[string]any `json:"metadata"`
	}
	getJSON(t, base+"/api/images", &images)
	if len(images) != 1 || images[0].Metadata["bannerData"] == nil {
		t.Errorf("images = %+v, want one image with bannerData", images)
	}

	// the raw absolute URL goes on the wire unescaped
	var banner struct {
		Brand string `json:"brand"`
	}
	getJSON(t, base+"/api/banner_data/https://cdn.example.com/p.jpg", &banner)
	if banner.Brand != "Acme" {
		t.Errorf("banner lookup by raw URL = %+v, want brand Acme", banner)
	}

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "E2E Relay") {
		t.Error("embedded viewer should render the configured title")
	}
}

func postJSON(t *testing.T, url, body string, wantStatus int) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s = %d, want %d: %s", url, resp.StatusCode, wantStatus, b)
	}
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: decode: %v", url, err)
	}
}
