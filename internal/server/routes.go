package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply middleware stack. Preflight OPTIONS requests are answered by the
	// CORS middleware, so each path lists OPTIONS alongside its real method.
	r.Use(s.corsMiddleware)
	r.Use(requestSizeLimiter(s.cfg.MaxRequestSize))
	r.Use(newRateLimiter(s.cfg.RateLimit, s.cfg.RateLimitBurst).middleware)

	r.HandleFunc("/", s.bannerHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/health", s.healthHandler).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/api/auth/session", s.createSession).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/auth/session", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/session", s.destroySession).Methods(http.MethodDelete)
	r.HandleFunc("/api/auth/validate", s.validateUsername).Methods(http.MethodPost, http.MethodOptions)

	r.HandleFunc("/api/rooms/create", s.createRoom).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/rooms/list", s.listRooms).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/rooms/{id}", s.getRoom).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/rooms/{id}/join", s.joinRoom).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/rooms/{id}/qr", s.roomQR).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/ws", s.router.HandleWebSocket)

	return r
}

func (s *Server) bannerHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": "skribly-backend",
		"status":  "ok",
	})
}
