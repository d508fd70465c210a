// Package socket is the inbound half of the event channel: it upgrades HTTP
// connections, reads the client's event stream, and dispatches each event to
// the engine with authentication gating. Outbound delivery belongs to the
// hub.
package socket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/game"
	"github.com/eehab-saadat/skribly-backend/internal/hub"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
	"github.com/eehab-saadat/skribly-backend/internal/utils"
)

const socketIDLength = 16

type Router struct {
	reg    *registry.Registry
	engine *game.Engine
	hub    *hub.Hub
	logger *zap.Logger

	upgrader websocket.Upgrader
}

func NewRouter(reg *registry.Registry, engine *game.Engine, h *hub.Hub, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		reg:    reg,
		engine: engine,
		hub:    h,
		logger: logger.Named("socket"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the connection, confirms it, and starts the read
// loop.
func (rt *Router) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	socketID := utils.GenerateSocketID(socketIDLength)
	rt.hub.Add(socketID, conn)

	// Best-effort session info from cookie/header; real auth happens on the
	// authenticate event.
	httpSession := internal.SessionFromRequest(r)
	confirmed := map[string]any{
		"message": "Successfully connected to server",
		"status":  "connected_anonymous",
	}
	if httpSession != "" {
		confirmed["user_id"] = httpSession
		if user, ok := rt.reg.GetUser(httpSession); ok {
			confirmed["username"] = user.Username
			confirmed["status"] = "connected"
			confirmed["message"] = "Successfully connected to server"
		} else {
			confirmed["status"] = "connected_no_session"
			confirmed["message"] = "Connected but session invalid"
		}
	}
	rt.hub.ToSocket(socketID, "connection_confirmed", confirmed)

	rt.logger.Info("socket connected", zap.String("socket", socketID))
	go rt.readLoop(socketID, httpSession, conn)
}

func (rt *Router) readLoop(socketID, httpSession string, conn *websocket.Conn) {
	defer rt.disconnect(socketID, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			rt.logger.Debug("socket read ended",
				zap.String("socket", socketID), zap.Error(err))
			return
		}

		var msg internal.Message[json.RawMessage]
		if err := json.Unmarshal(raw, &msg); err != nil {
			rt.logger.Debug("unparseable message",
				zap.String("socket", socketID), zap.Error(err))
			continue
		}

		rt.dispatch(socketID, httpSession, msg)
	}
}

// disconnect unbinds the socket but keeps the user seated in their room: a
// dropped connection is treated as transient and the session may resume on a
// new socket.
func (rt *Router) disconnect(socketID string, conn *websocket.Conn) {
	sessionID, authenticated := rt.hub.SessionOf(socketID)
	rt.hub.Remove(socketID)
	_ = conn.Close()

	if !authenticated {
		rt.logger.Info("anonymous socket disconnected", zap.String("socket", socketID))
		return
	}

	user, ok := rt.reg.GetUser(sessionID)
	if ok && user.CurrentRoom != "" {
		rt.hub.ToRoom(user.CurrentRoom, "player_disconnected", map[string]any{
			"player_id": sessionID,
			"username":  user.Username,
		})
	}
	rt.logger.Info("socket disconnected",
		zap.String("socket", socketID), zap.String("session", sessionID))
}

func (rt *Router) sendError(socketID string, err error) {
	rt.hub.ToSocket(socketID, "error", internal.ErrorData{Message: err.Error()})
}

// requireSession returns the bound session or reports the auth error to the
// caller.
func (rt *Router) requireSession(socketID string) (string, bool) {
	sessionID, ok := rt.hub.SessionOf(socketID)
	if !ok {
		rt.hub.ToSocket(socketID, "error", internal.ErrorData{
			Message: "Authentication required. Please authenticate your socket connection first.",
		})
		return "", false
	}
	return sessionID, true
}

func decode[T any](raw json.RawMessage) (T, bool) {
	var v T
	if len(raw) == 0 {
		return v, true
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

type authPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type roomPayload struct {
	RoomID string `json:"room_id"`
}

type wordPayload struct {
	Word   string `json:"word"`
	RoomID string `json:"room_id"`
}

type guessPayload struct {
	Guess  string `json:"guess"`
	RoomID string `json:"room_id"`
}

type chatPayload struct {
	Message string `json:"message"`
	RoomID  string `json:"room_id"`
}

func (rt *Router) dispatch(socketID, httpSession string, msg internal.Message[json.RawMessage]) {
	rt.logger.Debug("event received",
		zap.String("socket", socketID), zap.String("event", msg.Type))

	switch msg.Type {
	case "authenticate":
		p, ok := decode[authPayload](msg.Data)
		if !ok {
			rt.sendError(socketID, errBadPayload)
			return
		}
		rt.authenticate(socketID, httpSession, p)

	case "join_room":
		p, _ := decode[roomPayload](msg.Data)
		rt.joinRoom(socketID, p.RoomID)

	case "leave_room":
		p, _ := decode[roomPayload](msg.Data)
		rt.leaveRoom(socketID, p.RoomID)

	case "get_room_info":
		p, _ := decode[roomPayload](msg.Data)
		rt.roomInfo(socketID, p.RoomID)

	case "start_game":
		if sessionID, ok := rt.requireSession(socketID); ok {
			if err := rt.engine.StartGame(sessionID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "select_word":
		if sessionID, ok := rt.requireSession(socketID); ok {
			p, _ := decode[wordPayload](msg.Data)
			if err := rt.engine.SelectWord(sessionID, p.Word, p.RoomID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "submit_guess":
		if sessionID, ok := rt.requireSession(socketID); ok {
			p, _ := decode[guessPayload](msg.Data)
			if err := rt.engine.SubmitGuess(sessionID, p.Guess, p.RoomID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "send_chat_message":
		if sessionID, ok := rt.requireSession(socketID); ok {
			p, _ := decode[chatPayload](msg.Data)
			if err := rt.engine.SendChat(sessionID, p.Message, p.RoomID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "draw_start":
		if sessionID, ok := rt.requireSession(socketID); ok {
			p, _ := decode[game.StrokeInput](msg.Data)
			if err := rt.engine.DrawStart(sessionID, p); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "draw_move":
		if sessionID, ok := rt.requireSession(socketID); ok {
			p, _ := decode[game.StrokeInput](msg.Data)
			if err := rt.engine.DrawMove(sessionID, p); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "draw_end":
		if sessionID, ok := rt.requireSession(socketID); ok {
			if err := rt.engine.DrawEnd(sessionID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "clear_canvas":
		if sessionID, ok := rt.requireSession(socketID); ok {
			if err := rt.engine.ClearCanvas(sessionID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "change_tool":
		if sessionID, ok := rt.requireSession(socketID); ok {
			p, _ := decode[game.StrokeInput](msg.Data)
			if err := rt.engine.ChangeTool(sessionID, p); err != nil {
				rt.sendError(socketID, err)
			}
		}

	case "turn_timeout":
		if _, ok := rt.requireSession(socketID); ok {
			p, _ := decode[roomPayload](msg.Data)
			if err := rt.engine.TurnTimeout(p.RoomID); err != nil {
				rt.sendError(socketID, err)
			}
		}

	default:
		rt.logger.Debug("unknown event",
			zap.String("socket", socketID), zap.String("event", msg.Type))
	}
}

func (rt *Router) authenticate(socketID, httpSession string, p authPayload) {
	sessionID := p.UserID
	if sessionID == "" {
		sessionID = httpSession
	}
	if sessionID == "" {
		rt.hub.ToSocket(socketID, "authentication_failed", internal.ErrorData{
			Message: "User ID required",
		})
		return
	}

	user, ok := rt.reg.GetUser(sessionID)
	if !ok {
		// The server may have restarted since the HTTP session was minted;
		// rebuild the user when the client still knows its username.
		if p.Username == "" {
			rt.hub.ToSocket(socketID, "authentication_failed", internal.ErrorData{
				Message: "Invalid user session - please refresh page",
			})
			return
		}
		var err error
		user, err = rt.reg.MaterializeUser(sessionID, p.Username)
		if err != nil {
			rt.hub.ToSocket(socketID, "authentication_failed", internal.ErrorData{
				Message: err.Error(),
			})
			return
		}
	}

	rt.hub.Bind(socketID, sessionID)
	rt.logger.Info("socket authenticated",
		zap.String("socket", socketID),
		zap.String("session", sessionID),
		zap.String("username", user.Username))

	rt.hub.ToSocket(socketID, "authentication_success", map[string]any{
		"message": "Socket authenticated successfully",
		"user":    user,
	})
}

func (rt *Router) joinRoom(socketID, roomID string) {
	sessionID, ok := rt.requireSession(socketID)
	if !ok {
		return
	}
	if roomID == "" {
		rt.sendError(socketID, errRoomIDRequired)
		return
	}

	user, ok := rt.reg.GetUser(sessionID)
	if !ok {
		rt.sendError(socketID, errInvalidSession)
		return
	}

	room, ok := rt.reg.GetRoom(roomID)
	if !ok {
		rt.sendError(socketID, errRoomGone)
		return
	}
	if !room.HasPlayer(sessionID) {
		rt.sendError(socketID, errJoinHTTPFirst)
		return
	}

	rt.reg.SetUserRoom(sessionID, roomID)
	user.CurrentRoom = roomID
	detail, _ := rt.reg.RoomDetail(roomID)

	rt.hub.ToSocket(socketID, "room_joined", map[string]any{
		"room": detail,
		"user": user,
	})
	rt.hub.ToRoomExcept(roomID, sessionID, "player_joined", map[string]any{
		"player_id": sessionID,
		"username":  user.Username,
		"room":      detail,
	})

	rt.logger.Info("socket joined room",
		zap.String("socket", socketID),
		zap.String("session", sessionID),
		zap.String("room", roomID))
}

func (rt *Router) leaveRoom(socketID, roomID string) {
	sessionID, ok := rt.requireSession(socketID)
	if !ok {
		return
	}
	if roomID == "" {
		rt.sendError(socketID, errRoomIDRequired)
		return
	}

	user, ok := rt.reg.GetUser(sessionID)
	if !ok {
		rt.sendError(socketID, errInvalidSession)
		return
	}

	updated, err := rt.engine.LeaveRoom(sessionID, roomID)
	if err != nil {
		rt.sendError(socketID, err)
		return
	}

	rt.hub.ToSocket(socketID, "room_left", map[string]any{"success": true})

	if updated != nil {
		detail, _ := rt.reg.RoomDetail(roomID)
		rt.hub.ToRoom(roomID, "player_left", map[string]any{
			"player_id": sessionID,
			"username":  user.Username,
			"room":      detail,
		})
		rt.hub.ToRoom(roomID, "room_updated", map[string]any{
			"room":  detail,
			"event": "player_left",
		})
	}

	rt.logger.Info("socket left room",
		zap.String("session", sessionID), zap.String("room", roomID))
}

func (rt *Router) roomInfo(socketID, roomID string) {
	if _, ok := rt.requireSession(socketID); !ok {
		return
	}
	if roomID == "" {
		rt.sendError(socketID, errRoomIDRequired)
		return
	}

	detail, ok := rt.reg.RoomDetail(roomID)
	if !ok {
		rt.sendError(socketID, errRoomGone)
		return
	}
	rt.hub.ToSocket(socketID, "room_info", map[string]any{"room": detail})
}
