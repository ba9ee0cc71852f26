package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// EventsSocket streams lifecycle events to moderators. Browsers cannot set
// headers on websocket upgrades, so the token travels in the query string.
func (s *Server) EventsSocket(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("token")
	if query == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	actor, ok := s.Tokens.ActorFromToken(query)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if !actor.IsModerator() {
		WriteError(w, http.StatusForbidden, "Not allowed")
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.Hub.Add(conn)
	defer func() {
		s.Hub.Remove(conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
