package controlapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection to a websocket and relays cycle
// lifecycle events from the result cache's pub/sub channel until the
// client disconnects or the server shuts down.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.Error(w, "result cache is not configured, streaming is unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	events := s.events.Subscribe(ctx)

	s.logger.Info("stream client connected", zap.String("remote_addr", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				s.logger.Debug("stream client disconnected", zap.Error(err))
				return
			}
		}
	}
}
