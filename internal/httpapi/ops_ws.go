package httpapi

import (
	"net/http"
	"time"
)

// handleAuditWS streams audit decisions and write failures to an operator
// connection as JSON events until the peer disconnects.
func (s *Server) handleAuditWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, cancel := s.feed.Subscribe(64)
	defer cancel()

	ctx := r.Context()

	// Drain the reader so pings/close frames are processed; operators never
	// send anything we act on.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		conn.SetReadLimit(1 << 16)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readerDone:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
