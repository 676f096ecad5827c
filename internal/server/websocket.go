package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jpalmerr/relayboard/internal/hub"
)

const (
	// wsWriteDeadline bounds each frame write.
	wsWriteDeadline = 5 * time.Second

	// wsReadLimit caps inbound frames; clients are not expected to send data.
	wsReadLimit = 512
)

// handleWebSocket upgrades the connection and pushes relay events as JSON
// envelopes {"event": name, "data": payload}.
//
// One goroutine reads (only to process control frames and notice the peer
// closing), the handler goroutine is the only writer.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response
		s.logger.Debug("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.Close()

	sub, seeds := s.store.Subscribe("websocket")
	defer s.store.Unsubscribe(sub)

	log := s.logger.With("subscription_id", sub.ID, "transport", sub.Transport)
	log.Debug("websocket client connected", "remote_addr", r.RemoteAddr)

	pongWait := 2 * s.opts.PingInterval
	readDone := make(chan struct{})
	go s.readPump(conn, pongWait, readDone)

	for _, ev := range seeds {
		if err := writeEnvelope(conn, ev); err != nil {
			log.Debug("websocket seed write failed", "error", err)
			return
		}
	}

	ticker := s.clock.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				log.Debug("websocket subscription closed")
				closeConn(conn, websocket.CloseGoingAway, "server closing")
				return
			}
			if err := writeEnvelope(conn, ev); err != nil {
				log.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.Chan():
			deadline := time.Now().Add(wsWriteDeadline)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug("websocket ping failed", "error", err)
				return
			}

		case <-readDone:
			log.Debug("websocket client disconnected")
			return

		case <-r.Context().Done():
			closeConn(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// readPump discards inbound messages until the connection fails, then closes
// done. Pongs push the read deadline forward.
func (s *Server) readPump(conn *websocket.Conn, pongWait time.Duration, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
	}
}

func writeEnvelope(conn *websocket.Conn, ev hub.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline)); err != nil {
		return err
	}
	return conn.WriteJSON(ev.Envelope())
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteDeadline))
}
