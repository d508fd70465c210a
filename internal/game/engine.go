// Package game is the per-room game engine: the phase state machine, the
// authoritative scoring of guesses, progressive hints, the drawing relay and
// the phase timers that drive it all.
//
// A room is the unit of serialization. Every state mutation happens inside
// registry.UpdateRoomAtomically under the room's lock; broadcast payloads are
// snapshotted inside the critical section and emitted after it. Timer expiry
// callbacks re-enter through the same path and never run under a room lock.
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
)

var (
	ErrNotInRoom      = errors.New("not in a room")
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotHost        = errors.New("only host can start the game")
	ErrNotEnough      = errors.New("need at least 2 players to start")
	ErrAlreadyPlaying = errors.New("game already in progress")
	ErrNotYourTurn    = errors.New("not your turn to select word")
	ErrNotYourDraw    = errors.New("not your turn to draw")
	ErrOwnDrawing     = errors.New("you cannot guess your own drawing")
	ErrAlreadyGuessed = errors.New("you already guessed correctly")
	ErrBadPhase       = errors.New("action not allowed in current phase")
	ErrWordRequired   = errors.New("word is required")
	ErrInvalidWord    = errors.New("invalid word selected")
	ErrEmptyGuess     = errors.New("guess cannot be empty")
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrMessageTooLong = errors.New("message too long")
	ErrInvalidCoords  = errors.New("invalid coordinates")
	ErrInvalidSize    = errors.New("invalid brush size")
	ErrInvalidTool    = errors.New("invalid tool")
	ErrNotAllowed     = errors.New("not authorized")
)

// WordProvider supplies draw-word options and validates guess targets.
type WordProvider interface {
	RandomWords(difficulty internal.WordDifficulty, count int) []string
	RandomWord(difficulty internal.WordDifficulty) string
	IsValid(word string, difficulty internal.WordDifficulty) bool
}

// Config carries the fixed phase durations. Draw time comes from each room's
// settings instead.
type Config struct {
	WordSelectionTime time.Duration
	ResultDisplayTime time.Duration
	IntermissionTime  time.Duration
}

func DefaultConfig() Config {
	return Config{
		WordSelectionTime: 10 * time.Second,
		ResultDisplayTime: 5 * time.Second,
		IntermissionTime:  3 * time.Second,
	}
}

type Engine struct {
	reg    *registry.Registry
	emit   Emitter
	timers *TimerService
	words  WordProvider
	cfg    Config
	logger *zap.Logger
	clock  func() time.Time

	hintMu sync.Mutex
	hints  map[string]context.CancelFunc
}

func NewEngine(reg *registry.Registry, emit Emitter, timers *TimerService, words WordProvider, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		reg:    reg,
		emit:   emit,
		timers: timers,
		words:  words,
		cfg:    cfg,
		logger: logger.Named("engine"),
		clock:  time.Now,
		hints:  make(map[string]context.CancelFunc),
	}
}

// currentRoom resolves the caller's room, preferring the session record and
// falling back to an explicitly supplied room ID the caller is a member of.
func (e *Engine) currentRoom(sessionID, fallbackRoomID string) (string, error) {
	user, ok := e.reg.GetUser(sessionID)
	if !ok {
		return "", ErrNotInRoom
	}
	if user.CurrentRoom != "" {
		return user.CurrentRoom, nil
	}
	if fallbackRoomID != "" {
		room, ok := e.reg.GetRoom(fallbackRoomID)
		if ok && room.HasPlayer(sessionID) {
			e.reg.SetUserRoom(sessionID, fallbackRoomID)
			return fallbackRoomID, nil
		}
	}
	return "", ErrNotInRoom
}

// StartGame moves a waiting room into play. Host only, two players minimum.
func (e *Engine) StartGame(sessionID string) error {
	roomID, err := e.currentRoom(sessionID, "")
	if err != nil {
		return err
	}

	var totalRounds int
	err = e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		if room.Host != sessionID {
			return ErrNotHost
		}
		if room.Status == internal.StatusPlaying {
			return ErrAlreadyPlaying
		}
		if room.Status != internal.StatusWaiting {
			return ErrBadPhase
		}
		if len(room.Players) < internal.MinPlayersToStart {
			return ErrNotEnough
		}

		scores := make(map[string]int, len(room.Players))
		for _, id := range room.Players {
			scores[id] = 0
		}

		room.Status = internal.StatusPlaying
		room.Game = internal.GameState{
			CurrentRound: 1,
			DrawerOrder:  shuffled(room.Players),
			Scores:       scores,
			WordsUsed:    make([]string, 0, room.Settings.Rounds*len(room.Players)),
			Phase:        internal.PhaseLobby,
		}
		totalRounds = room.Settings.Rounds
		return nil
	})
	if errors.Is(err, registry.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	e.logger.Info("game started",
		zap.String("room", roomID), zap.String("host", sessionID))

	detail, _ := e.reg.RoomDetail(roomID)
	e.emit.ToRoom(roomID, "game_started", map[string]any{
		"room_id":       roomID,
		"room":          detail,
		"current_round": 1,
		"total_rounds":  totalRounds,
	})
	e.emit.ToRoom(roomID, "room_updated", map[string]any{
		"room":  detail,
		"event": "game_started",
	})

	e.startTurn(roomID)
	return nil
}

// LeaveRoom removes the player and, if they were drawing, ends the turn.
func (e *Engine) LeaveRoom(sessionID, roomID string) (*internal.Room, error) {
	var wasDrawer, midTurn bool
	if room, ok := e.reg.GetRoom(roomID); ok {
		wasDrawer = room.Game.CurrentDrawer == sessionID
		midTurn = room.Status == internal.StatusPlaying &&
			(room.Game.Phase == internal.PhaseWordSelection || room.Game.Phase == internal.PhaseDrawing)
	}

	updated, err := e.reg.RemovePlayer(roomID, sessionID)
	if err != nil {
		return nil, err
	}

	if updated == nil {
		// Room emptied out and was deleted; its state machine dies with it.
		e.timers.Stop(roomID)
		e.stopHints(roomID)
		return nil, nil
	}

	if wasDrawer && midTurn {
		e.logger.Info("drawer left mid-turn, ending turn",
			zap.String("room", roomID), zap.String("session", sessionID))
		e.timers.Stop(roomID)
		e.endTurn(roomID, false, false)
	}
	return updated, nil
}

// CleanupRoom tears down engine resources when a room is deleted outside the
// leave path (age-out sweep, shutdown).
func (e *Engine) CleanupRoom(roomID string) {
	e.timers.Stop(roomID)
	e.stopHints(roomID)
}

func shuffled(players []string) []string {
	order := append([]string(nil), players...)
	shuffleStrings(order)
	return order
}
