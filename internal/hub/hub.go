// Package hub routes outbound events to sockets. It owns the
// socket_id -> session_id binding and its reverse index, and fans events out
// to a room, a single session, or a room minus one sender.
//
// Each socket writes through its own buffered channel drained by a dedicated
// goroutine, so messages to one socket are delivered in FIFO order and a slow
// peer never blocks a broadcast.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
)

// PlayerLister resolves a room to its member session IDs at send time.
type PlayerLister interface {
	RoomPlayers(roomID string) []string
}

// Conn is the transport surface the hub needs from a websocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

const sendBuffer = 256

type Socket struct {
	ID   string
	conn Conn

	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *zap.Logger
}

func (s *Socket) run() {
	for {
		select {
		case msg, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("socket write failed",
					zap.String("socket", s.ID), zap.Error(err))
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Socket) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// enqueue is fire-and-forget: when the buffer is full the message is dropped
// rather than stalling the caller.
func (s *Socket) enqueue(msg []byte) {
	select {
	case s.send <- msg:
	case <-s.done:
	default:
		s.logger.Warn("dropping message for slow socket", zap.String("socket", s.ID))
	}
}

type Hub struct {
	mu             sync.RWMutex
	sockets        map[string]*Socket
	socketSession  map[string]string
	sessionSockets map[string]map[string]struct{}

	players PlayerLister
	logger  *zap.Logger
}

func New(players PlayerLister, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sockets:        make(map[string]*Socket),
		socketSession:  make(map[string]string),
		sessionSockets: make(map[string]map[string]struct{}),
		players:        players,
		logger:         logger.Named("hub"),
	}
}

// Add registers a connection and starts its writer.
func (h *Hub) Add(socketID string, c Conn) *Socket {
	s := &Socket{
		ID:     socketID,
		conn:   c,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: h.logger,
	}

	h.mu.Lock()
	h.sockets[socketID] = s
	h.mu.Unlock()

	go s.run()
	return s
}

// Remove unbinds and tears down a socket. Safe to call for unknown IDs.
func (h *Hub) Remove(socketID string) {
	h.mu.Lock()
	s, ok := h.sockets[socketID]
	delete(h.sockets, socketID)
	if sessionID, bound := h.socketSession[socketID]; bound {
		delete(h.socketSession, socketID)
		if set := h.sessionSockets[sessionID]; set != nil {
			delete(set, socketID)
			if len(set) == 0 {
				delete(h.sessionSockets, sessionID)
			}
		}
	}
	h.mu.Unlock()

	if ok {
		s.close()
	}
}

// Bind associates an authenticated socket with a session. A socket holds at
// most one binding; rebinding replaces the old one.
func (h *Hub) Bind(socketID, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.socketSession[socketID]; ok {
		if set := h.sessionSockets[prev]; set != nil {
			delete(set, socketID)
			if len(set) == 0 {
				delete(h.sessionSockets, prev)
			}
		}
	}

	h.socketSession[socketID] = sessionID
	set := h.sessionSockets[sessionID]
	if set == nil {
		set = make(map[string]struct{})
		h.sessionSockets[sessionID] = set
	}
	set[socketID] = struct{}{}
}

// SessionOf returns the session bound to a socket, if any.
func (h *Hub) SessionOf(socketID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessionID, ok := h.socketSession[socketID]
	return sessionID, ok
}

func (h *Hub) marshal(event string, payload any) []byte {
	data, err := json.Marshal(internal.Message[any]{Type: event, Data: payload})
	if err != nil {
		h.logger.Error("marshal event failed",
			zap.String("event", event), zap.Error(err))
		return nil
	}
	return data
}

// ToSocket delivers to one socket regardless of binding.
func (h *Hub) ToSocket(socketID, event string, payload any) {
	msg := h.marshal(event, payload)
	if msg == nil {
		return
	}

	h.mu.RLock()
	s := h.sockets[socketID]
	h.mu.RUnlock()
	if s != nil {
		s.enqueue(msg)
	}
}

// ToSession delivers to every socket bound to the session.
func (h *Hub) ToSession(sessionID, event string, payload any) {
	msg := h.marshal(event, payload)
	if msg == nil {
		return
	}

	for _, s := range h.sessionSocketsSnapshot(sessionID) {
		s.enqueue(msg)
	}
}

// ToRoom delivers to every authenticated socket whose session is currently a
// player in the room.
func (h *Hub) ToRoom(roomID, event string, payload any) {
	h.toRoom(roomID, "", event, payload)
}

// ToRoomExcept is ToRoom minus every socket of one session.
func (h *Hub) ToRoomExcept(roomID, exceptSession, event string, payload any) {
	h.toRoom(roomID, exceptSession, event, payload)
}

func (h *Hub) toRoom(roomID, exceptSession, event string, payload any) {
	msg := h.marshal(event, payload)
	if msg == nil {
		return
	}

	for _, sessionID := range h.players.RoomPlayers(roomID) {
		if sessionID == exceptSession {
			continue
		}
		for _, s := range h.sessionSocketsSnapshot(sessionID) {
			s.enqueue(msg)
		}
	}
}

func (h *Hub) sessionSocketsSnapshot(sessionID string) []*Socket {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.sessionSockets[sessionID]
	if len(set) == 0 {
		return nil
	}
	sockets := make([]*Socket, 0, len(set))
	for socketID := range set {
		if s := h.sockets[socketID]; s != nil {
			sockets = append(sockets, s)
		}
	}
	return sockets
}
