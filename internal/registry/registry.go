// Package registry holds the volatile server state: user sessions and game
// rooms. Everything lives in memory and dies with the process.
//
// Lock order is registry mutex first, then an individual room's mutex. Reads
// hand out deep copies so callers never alias live state.
package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/utils"
)

type Registry struct {
	mu     sync.RWMutex
	users  map[string]*internal.User
	rooms  map[string]*internal.Room
	logger *zap.Logger
	now    func() time.Time
}

func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		users:  make(map[string]*internal.User),
		rooms:  make(map[string]*internal.Room),
		logger: logger.Named("registry"),
		now:    time.Now,
	}
}

// =============================================================================
// USERS
// =============================================================================

// ValidateUsername checks length and case-insensitive uniqueness against all
// live users.
func (r *Registry) ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if n := len([]rune(username)); n < internal.MinUsernameLen || n > internal.MaxUsernameLen {
		return ErrInvalidUsername
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usernameFreeLocked(username)
}

func (r *Registry) usernameFreeLocked(username string) error {
	lower := strings.ToLower(username)
	for _, u := range r.users {
		if strings.ToLower(u.Username) == lower {
			return ErrUsernameTaken
		}
	}
	return nil
}

// CreateUser registers a new session for username and returns a copy of the
// stored record.
func (r *Registry) CreateUser(username, avatarURL string) (internal.User, error) {
	username = strings.TrimSpace(username)
	if n := len([]rune(username)); n < internal.MinUsernameLen || n > internal.MaxUsernameLen {
		return internal.User{}, ErrInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.usernameFreeLocked(username); err != nil {
		return internal.User{}, err
	}

	user := &internal.User{
		SessionID: uuid.NewString(),
		Username:  username,
		AvatarURL: avatarURL,
		CreatedAt: r.now(),
	}
	r.users[user.SessionID] = user

	r.logger.Info("created session",
		zap.String("session", user.SessionID),
		zap.String("username", username))
	return *user, nil
}

// MaterializeUser re-creates a user record for a known session ID, used when
// a socket authenticates with a session the server no longer remembers but a
// username is still available client-side.
func (r *Registry) MaterializeUser(sessionID, username string) (internal.User, error) {
	username = strings.TrimSpace(username)
	if n := len([]rune(username)); n < internal.MinUsernameLen || n > internal.MaxUsernameLen {
		return internal.User{}, ErrInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[sessionID]; ok {
		return *existing, nil
	}

	user := &internal.User{
		SessionID: sessionID,
		Username:  username,
		CreatedAt: r.now(),
	}
	r.users[sessionID] = user

	r.logger.Info("materialized session from socket auth",
		zap.String("session", sessionID),
		zap.String("username", username))
	return *user, nil
}

func (r *Registry) GetUser(sessionID string) (internal.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[sessionID]
	if !ok {
		return internal.User{}, false
	}
	return *u, true
}

func (r *Registry) DeleteUser(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[sessionID]; ok {
		delete(r.users, sessionID)
		r.logger.Info("removed session",
			zap.String("session", sessionID),
			zap.String("username", u.Username))
	}
}

// Username resolves a session ID to its display name, empty if unknown.
func (r *Registry) Username(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[sessionID]; ok {
		return u.Username
	}
	return ""
}

// SetUserRoom records (or clears, with "") the user's current room.
func (r *Registry) SetUserRoom(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[sessionID]; ok {
		u.CurrentRoom = roomID
	}
}

// =============================================================================
// ROOMS
// =============================================================================

// CreateRoom makes a new waiting room hosted by hostSession, with the host as
// first player and a zero score seeded.
func (r *Registry) CreateRoom(hostSession string, settings internal.RoomSettings, name string) (*internal.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host, ok := r.users[hostSession]
	if !ok {
		return nil, ErrHostUnknown
	}

	if name == "" {
		name = host.Username + "'s Room"
	}

	id := utils.GenerateRoomID(internal.RoomIDLength)
	for _, exists := r.rooms[id]; exists; _, exists = r.rooms[id] {
		id = utils.GenerateRoomID(internal.RoomIDLength)
	}

	room := &internal.Room{
		ID:         id,
		Name:       name,
		Host:       hostSession,
		Status:     internal.StatusWaiting,
		Players:    []string{hostSession},
		MaxPlayers: settings.MaxPlayers,
		Settings:   settings,
		Game: internal.GameState{
			Phase:  internal.PhaseLobby,
			Scores: map[string]int{hostSession: 0},
		},
		CreatedAt: r.now(),
	}
	r.rooms[id] = room
	host.CurrentRoom = id

	r.logger.Info("created room",
		zap.String("room", id),
		zap.String("host", hostSession),
		zap.String("name", name))

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.Clone(), nil
}

// GetRoom returns a deep copy of the room, or false if it does not exist.
func (r *Registry) GetRoom(id string) (*internal.Room, bool) {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return room.Clone(), true
}

// RoomExists reports existence without copying.
func (r *Registry) RoomExists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[id]
	return ok
}

// UpdateRoomAtomically runs fn on the live room record under the room's
// write lock. fn must not call back into the registry or block on I/O.
func (r *Registry) UpdateRoomAtomically(id string, fn func(room *internal.Room) error) error {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	return fn(room)
}

// AddPlayer joins sessionID to the room. Re-adding a present player is a
// successful no-op.
func (r *Registry) AddPlayer(roomID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	user, ok := r.users[sessionID]
	if !ok {
		return ErrUserNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if room.HasPlayer(sessionID) {
		user.CurrentRoom = roomID
		return nil
	}
	if room.Status != internal.StatusWaiting {
		return ErrGameInProgress
	}
	if room.IsFull() {
		return ErrRoomFull
	}

	room.Players = append(room.Players, sessionID)
	room.Game.Scores[sessionID] = 0
	user.CurrentRoom = roomID

	r.logger.Info("player joined room",
		zap.String("room", roomID),
		zap.String("session", sessionID),
		zap.Int("players", len(room.Players)))
	return nil
}

// RemovePlayer takes sessionID out of the room. If the host leaves, the
// oldest remaining player is promoted; if the room empties it is deleted and
// (nil, nil) is returned.
func (r *Registry) RemovePlayer(roomID, sessionID string) (*internal.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()

	if !room.HasPlayer(sessionID) {
		return nil, ErrNotPresent
	}

	kept := room.Players[:0]
	for _, id := range room.Players {
		if id != sessionID {
			kept = append(kept, id)
		}
	}
	room.Players = kept
	delete(room.Game.Scores, sessionID)

	if u, ok := r.users[sessionID]; ok && u.CurrentRoom == roomID {
		u.CurrentRoom = ""
	}

	if len(room.Players) == 0 {
		delete(r.rooms, roomID)
		r.logger.Info("deleted empty room", zap.String("room", roomID))
		return nil, nil
	}

	if room.Host == sessionID {
		room.Host = room.Players[0]
		r.logger.Info("promoted new host",
			zap.String("room", roomID),
			zap.String("host", room.Host))
	}

	r.logger.Info("player left room",
		zap.String("room", roomID),
		zap.String("session", sessionID),
		zap.Int("players", len(room.Players)))
	return room.Clone(), nil
}

// RoomPlayers is the fan-out view: current player session IDs for a room.
func (r *Registry) RoomPlayers(roomID string) []string {
	r.mu.RLock()
	room, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	room.Mu.RLock()
	defer room.Mu.RUnlock()
	return append([]string(nil), room.Players...)
}

// AllWaitingRooms snapshots every room still accepting players.
func (r *Registry) AllWaitingRooms() []*internal.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*internal.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		room.Mu.RLock()
		if room.Status == internal.StatusWaiting {
			rooms = append(rooms, room.Clone())
		}
		room.Mu.RUnlock()
	}
	return rooms
}

// Counts returns total rooms and total seated players.
func (r *Registry) Counts() (rooms int, players int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, room := range r.rooms {
		room.Mu.RLock()
		players += len(room.Players)
		room.Mu.RUnlock()
	}
	return len(r.rooms), players
}

// RoomDetail returns the player-enriched snapshot used in room payloads.
func (r *Registry) RoomDetail(id string) (internal.RoomDetail, bool) {
	r.mu.RLock()
	room, ok := r.rooms[id]
	if !ok {
		r.mu.RUnlock()
		return internal.RoomDetail{}, false
	}

	room.Mu.RLock()
	snapshot := room.Clone()
	room.Mu.RUnlock()

	players := make([]internal.PlayerInfo, 0, len(snapshot.Players))
	for _, sessionID := range snapshot.Players {
		u, ok := r.users[sessionID]
		if !ok {
			continue
		}
		players = append(players, internal.PlayerInfo{
			SessionID: sessionID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Score:     snapshot.Game.Scores[sessionID],
		})
	}
	r.mu.RUnlock()

	return internal.RoomDetail{
		ID:         snapshot.ID,
		Name:       snapshot.Name,
		Host:       snapshot.Host,
		Status:     snapshot.Status,
		Players:    players,
		MaxPlayers: snapshot.MaxPlayers,
		Settings:   snapshot.Settings,
		Game:       snapshot.Game,
		CreatedAt:  internal.EpochSeconds(snapshot.CreatedAt),
	}, true
}

// DeleteRoom removes a room outright, clearing membership back-references.
func (r *Registry) DeleteRoom(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteRoomLocked(id)
}

func (r *Registry) deleteRoomLocked(id string) {
	room, ok := r.rooms[id]
	if !ok {
		return
	}
	room.Mu.Lock()
	for _, sessionID := range room.Players {
		if u, ok := r.users[sessionID]; ok && u.CurrentRoom == id {
			u.CurrentRoom = ""
		}
	}
	room.Mu.Unlock()
	delete(r.rooms, id)
	r.logger.Info("deleted room", zap.String("room", id))
}

// CleanupInactive drops empty rooms and rooms older than RoomMaxAge,
// returning the IDs that were removed.
func (r *Registry) CleanupInactive() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-internal.RoomMaxAge)
	var stale []string
	for id, room := range r.rooms {
		room.Mu.RLock()
		if len(room.Players) == 0 || room.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
		room.Mu.RUnlock()
	}

	for _, id := range stale {
		r.deleteRoomLocked(id)
	}
	if len(stale) > 0 {
		r.logger.Info("cleaned up inactive rooms", zap.Int("count", len(stale)))
	}
	return stale
}
