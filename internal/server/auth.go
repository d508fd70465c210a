package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
)

type sessionRequest struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// createSession mints a session for a username and hands back the ID both in
// the body and as cookies, so cross-origin clients can pick whichever works.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
		return
	}
	if req.Username == "" {
		s.writeError(w, http.StatusBadRequest, "Username is required", "")
		return
	}

	user, err := s.reg.CreateUser(req.Username, req.AvatarURL)
	switch {
	case errors.Is(err, registry.ErrInvalidUsername):
		s.writeError(w, http.StatusBadRequest, "Username must be 3-20 characters", "")
		return
	case errors.Is(err, registry.ErrUsernameTaken):
		s.writeError(w, http.StatusBadRequest, "Username is already taken", "")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	setSessionCookies(w, user.SessionID)
	s.logger.Info("session created",
		zap.String("session", user.SessionID), zap.String("username", user.Username))

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"session_id": user.SessionID,
		"user":       user,
	})
}

func setSessionCookies(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Readable by client JS for the X-Session-ID fallback.
	http.SetCookie(w, &http.Cookie{
		Name:     internal.SessionCookieLegacy,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{internal.SessionCookie, internal.SessionCookieLegacy} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := internal.SessionFromRequest(r)
	if sessionID == "" {
		s.writeError(w, http.StatusUnauthorized, "No active session", "")
		return
	}

	user, ok := s.reg.GetUser(sessionID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (s *Server) destroySession(w http.ResponseWriter, r *http.Request) {
	if sessionID := internal.SessionFromRequest(r); sessionID != "" {
		s.reg.DeleteUser(sessionID)
	}
	clearSessionCookies(w)
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// validateUsername checks availability without creating anything.
func (s *Server) validateUsername(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "Request body is required",
		})
		return
	}
	if req.Username == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "Username is required",
		})
		return
	}

	switch err := s.reg.ValidateUsername(req.Username); {
	case errors.Is(err, registry.ErrInvalidUsername):
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "Username must be 3-20 characters",
		})
	case errors.Is(err, registry.ErrUsernameTaken):
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"valid": false,
			"error": "Username is already taken",
		})
	default:
		s.writeJSON(w, http.StatusOK, map[string]any{"valid": true})
	}
}
