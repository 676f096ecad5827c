package server

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
)

// corsMethods lists the methods advertised on preflight responses.
const corsMethods = "GET, POST, DELETE, OPTIONS"

// cors sets Access-Control-Allow-Origin on every response and answers
// preflight requests directly.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.AllowedOrigin)
		if s.opts.AllowedOrigin != "*" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimitWrites rejects POST and DELETE requests with 429 once the shared
// token bucket is empty. Reads and push streams are never limited.
func (s *Server) rateLimitWrites(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics turns a handler panic into a 500 response with a correlation
// ID. The full stack trace is logged server-side only.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			errorID := uuid.New().String()
			s.logger.Error("handler panicked",
				"error_id", errorID,
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			s.writeInternalError(w, errorID)
		}()
		next.ServeHTTP(w, r)
	})
}

// lookupBanners serves GET and HEAD banner lookups ahead of the mux. ServeMux
// cleans paths, which collapses the "//" of an unescaped absolute image URL
// and redirects instead of matching.
func (s *Server) lookupBanners(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if (r.Method == http.MethodGet || r.Method == http.MethodHead) &&
			strings.HasPrefix(r.URL.EscapedPath(), bannerPathPrefix) {
			s.handleGetBanner(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
