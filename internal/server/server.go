package server

import (
	"context"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/relayboard/internal/store"
)

const (
	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultPingInterval is how often WebSocket clients are pinged.
	defaultPingInterval = 30 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "RelayBoard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Options configures a [Server].
type Options struct {
	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// Assets holds the embedded dashboard (assets/index.html). May be nil.
	Assets fs.FS

	// StaticDir, when set, is served at "/" instead of the embedded dashboard.
	StaticDir string

	// Title is substituted into the dashboard page.
	Title string

	// AllowedOrigin is sent as Access-Control-Allow-Origin and checked on
	// WebSocket upgrades. Empty means "*".
	AllowedOrigin string

	// WriteRateLimit is the sustained rate of POST/DELETE requests per
	// second. 0 disables limiting.
	WriteRateLimit float64

	// WriteBurst is the token bucket size when WriteRateLimit is set.
	WriteBurst int

	// EnableSSE serves the Server-Sent Events stream at /api/events.
	EnableSSE bool

	// EnableWebSocket serves the WebSocket stream at /ws.
	EnableWebSocket bool

	// EnableMetrics serves Prometheus metrics at /metrics.
	EnableMetrics bool

	// PingInterval is the WebSocket keepalive interval. Defaults to 30s.
	PingInterval time.Duration

	// Clock drives WebSocket ping tickers. Defaults to the real clock.
	Clock clockwork.Clock

	// Logger receives server events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server handles HTTP requests for the relay API and push streams.
//
// Routes:
//   - POST/GET/DELETE /api/coordinates
//   - POST /api/image, GET/DELETE /api/images
//   - POST/GET /api/banner_data, GET /api/banner_data/{imageUrl}
//   - DELETE /api/all
//   - GET /api/events (SSE), GET /ws (WebSocket)
//   - GET /healthz, GET /metrics, GET / (dashboard or static files)
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	opts       Options
	limiter    *rate.Limiter
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server] backed by st.
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, opts Options) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.AllowedOrigin == "" {
		opts.AllowedOrigin = "*"
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		store:  st,
		opts:   opts,
		clock:  opts.Clock,
		logger: opts.Logger,
	}

	if opts.WriteRateLimit > 0 {
		burst := opts.WriteBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.WriteRateLimit), burst)
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/coordinates", s.handleAddCoordinate)
	mux.HandleFunc("GET /api/coordinates", s.handleListCoordinates)
	mux.HandleFunc("DELETE /api/coordinates", s.handleClearCoordinates)

	mux.HandleFunc("POST /api/image", s.handleAddImage)
	mux.HandleFunc("GET /api/images", s.handleListImages)
	mux.HandleFunc("DELETE /api/images", s.handleClearImages)

	mux.HandleFunc("POST /api/banner_data", s.handleAddBanner)
	mux.HandleFunc("GET /api/banner_data", s.handleListBanners)
	// GET lookups are answered by lookupBanners before path cleaning; the
	// pattern keeps 405 responses for other methods.
	mux.HandleFunc("GET /api/banner_data/{imageUrl...}", s.handleGetBanner)

	mux.HandleFunc("DELETE /api/all", s.handleClearAll)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.opts.EnableSSE {
		mux.HandleFunc("GET /api/events", s.handleSSE)
	}
	if s.opts.EnableWebSocket {
		mux.HandleFunc("GET /ws", s.handleWebSocket)
	}
	if s.opts.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	switch {
	case s.opts.StaticDir != "":
		mux.Handle("GET /", http.FileServer(http.Dir(s.opts.StaticDir)))
	case s.opts.Assets != nil:
		mux.HandleFunc("GET /", s.handleDashboard)
	}

	return s.recoverPanics(s.cors(s.rateLimitWrites(s.lookupBanners(mux))))
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.opts.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.opts.Port, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context,
		// so long-lived SSE handlers observe shutdown.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// handleDashboard serves the embedded viewer page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.opts.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	content, err := fs.ReadFile(s.opts.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	title := s.opts.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// checkOrigin allows any origin when configured with "*", otherwise only
// requests without an Origin header or with the configured one.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.opts.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.opts.AllowedOrigin {
		return true
	}
	s.logger.Warn("websocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
	return false
}
