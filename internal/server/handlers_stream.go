package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jpalmerr/relayboard/internal/hub"
)

// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
const sseWriteTimeout = 10 * time.Second

// sseNull is sent as the data line of signal events.
var sseNull = []byte("null")

// handleSSE streams relay events via Server-Sent Events.
//
// The client first receives the current coordinate and image histories (when
// non-empty) and then every event published after it joined. The stream ends
// when the client disconnects, the server shuts down, or the subscription is
// evicted for falling behind.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeEvent := func(ev hub.Event) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		data := ev.Data
		if data == nil {
			data = sseNull
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	sub, seeds := s.store.Subscribe("sse")
	defer s.store.Unsubscribe(sub)

	log := s.logger.With("subscription_id", sub.ID, "transport", sub.Transport)
	log.Debug("sse client connected", "remote_addr", r.RemoteAddr)
	defer log.Debug("sse client disconnected")

	for _, ev := range seeds {
		if err := writeEvent(ev); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(ev); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
