package server

import (
	"net/http"
	"time"
)

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	rooms, players := s.reg.Counts()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"active_rooms":   rooms,
		"active_players": players,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"words":          s.words.Stats(),
	})
}
