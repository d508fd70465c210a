package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
)

type createRoomRequest struct {
	Name           string  `json:"name"`
	Rounds         *int    `json:"rounds"`
	DrawTime       *int    `json:"draw_time"`
	WordDifficulty *string `json:"word_difficulty"`
	MaxPlayers     *int    `json:"max_players"`
}

// requireUser resolves the authenticated user or writes the 401 itself.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (internal.User, bool) {
	sessionID := internal.SessionFromRequest(r)
	if sessionID == "" {
		s.writeError(w, http.StatusUnauthorized,
			"Authentication required. Please create a username first.", "NOT_AUTHENTICATED")
		return internal.User{}, false
	}
	user, ok := s.reg.GetUser(sessionID)
	if !ok {
		s.writeError(w, http.StatusUnauthorized,
			"Your session has expired. Please create a username again.", "SESSION_EXPIRED")
		return internal.User{}, false
	}
	return user, true
}

func (s *Server) createRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid setting values provided", "")
		return
	}

	settings := internal.DefaultSettings()
	if req.Rounds != nil {
		settings.Rounds = *req.Rounds
	}
	if req.DrawTime != nil {
		settings.DrawTime = *req.DrawTime
	}
	if req.WordDifficulty != nil {
		settings.WordDifficulty = internal.WordDifficulty(*req.WordDifficulty)
	}
	if req.MaxPlayers != nil {
		settings.MaxPlayers = *req.MaxPlayers
	}

	if settings.Rounds < internal.MinRounds || settings.Rounds > internal.MaxRounds {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Rounds must be between %d and %d", internal.MinRounds, internal.MaxRounds), "")
		return
	}
	if settings.DrawTime < internal.MinDrawTime || settings.DrawTime > internal.MaxDrawTime {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Draw time must be between %d and %d seconds", internal.MinDrawTime, internal.MaxDrawTime), "")
		return
	}
	if !settings.WordDifficulty.Valid() {
		s.writeError(w, http.StatusBadRequest, "Invalid word difficulty", "")
		return
	}
	if settings.MaxPlayers < internal.MinPlayers || settings.MaxPlayers > internal.MaxPlayers {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Max players must be between %d and %d", internal.MinPlayers, internal.MaxPlayers), "")
		return
	}

	room, err := s.reg.CreateRoom(user.SessionID, settings, req.Name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	detail, _ := s.reg.RoomDetail(room.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"room":    detail,
	})
}

func (s *Server) getRoom(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	detail, ok := s.reg.RoomDetail(roomID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Room not found", "")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    detail,
	})
}

func (s *Server) joinRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	roomID := mux.Vars(r)["id"]

	room, found := s.reg.GetRoom(roomID)
	if !found {
		s.writeError(w, http.StatusNotFound,
			fmt.Sprintf("Room %s not found. It may have been deleted or expired.", roomID), "ROOM_NOT_FOUND")
		return
	}

	if room.HasPlayer(user.SessionID) {
		detail, _ := s.reg.RoomDetail(roomID)
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"room":    detail,
			"message": "You are already in this room",
		})
		return
	}

	err := s.reg.AddPlayer(roomID, user.SessionID)
	switch {
	case errors.Is(err, registry.ErrGameInProgress):
		s.writeError(w, http.StatusBadRequest,
			"This game is already in progress and cannot be joined.", "GAME_IN_PROGRESS")
		return
	case errors.Is(err, registry.ErrRoomFull):
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Room is full (%d/%d players)", len(room.Players), room.MaxPlayers), "ROOM_FULL")
		return
	case errors.Is(err, registry.ErrRoomNotFound):
		s.writeError(w, http.StatusNotFound,
			fmt.Sprintf("Room %s not found. It may have been deleted or expired.", roomID), "ROOM_NOT_FOUND")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError,
			"Failed to join room due to an unexpected error", "JOIN_FAILED")
		return
	}

	detail, _ := s.reg.RoomDetail(roomID)
	s.logger.Info("player joined via http",
		zap.String("room", roomID), zap.String("session", user.SessionID))

	// Players already in the room hear about the join over the socket.
	s.hub.ToRoom(roomID, "player_joined", map[string]any{
		"player_id": user.SessionID,
		"username":  user.Username,
		"room":      detail,
	})
	s.hub.ToRoom(roomID, "room_updated", map[string]any{
		"room":      detail,
		"event":     "player_joined",
		"player_id": user.SessionID,
	})

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    detail,
		"message": fmt.Sprintf("Successfully joined %s", detail.Name),
	})
}

func (s *Server) listRooms(w http.ResponseWriter, r *http.Request) {
	waiting := s.reg.AllWaitingRooms()

	summaries := make([]internal.RoomSummary, 0, len(waiting))
	for _, room := range waiting {
		host := s.reg.Username(room.Host)
		if host == "" {
			host = "Unknown"
		}
		summaries = append(summaries, internal.RoomSummary{
			ID:         room.ID,
			Name:       room.Name,
			Players:    len(room.Players),
			MaxPlayers: room.MaxPlayers,
			Status:     room.Status,
			Host:       host,
		})
	}

	totalRooms, totalPlayers := s.reg.Counts()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"rooms":         summaries,
		"total_rooms":   totalRooms,
		"total_players": totalPlayers,
	})
}

const qrSize = 256

// roomQR renders a PNG QR code pointing at the room's join link.
func (s *Server) roomQR(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if !s.reg.RoomExists(roomID) {
		s.writeError(w, http.StatusNotFound, "Room not found", "")
		return
	}

	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}

	png, err := qrcode.Encode(fmt.Sprintf("%s/join/%s", base, roomID), qrcode.Medium, qrSize)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to generate QR code", "")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
