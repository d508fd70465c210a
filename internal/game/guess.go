package game

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
)

// =============================================================================
// GUESS AND CHAT HANDLING
// =============================================================================

// SubmitGuess scores a guess against the current word. A correct guess earns
// 100 points plus 5 per whole second left on the drawing clock; anything else
// is relayed to the room as a guess-type chat line.
func (e *Engine) SubmitGuess(sessionID, guess, fallbackRoomID string) error {
	roomID, err := e.currentRoom(sessionID, fallbackRoomID)
	if err != nil {
		return err
	}
	user, ok := e.reg.GetUser(sessionID)
	if !ok {
		return ErrNotInRoom
	}

	cleaned := strings.ToLower(strings.TrimSpace(guess))
	if cleaned == "" {
		return ErrEmptyGuess
	}

	var (
		correct    bool
		allGuessed bool
		word       string
		score      int
		speedBonus int
		scores     map[string]int
		elapsed    float64
		remaining  float64
		timestamp  float64
	)
	err = e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if !room.HasPlayer(sessionID) {
			return ErrNotInRoom
		}
		if gs.CurrentDrawer == sessionID {
			return ErrOwnDrawing
		}
		if gs.HasGuessed(sessionID) {
			return ErrAlreadyGuessed
		}

		now := e.clock()
		timestamp = internal.EpochSeconds(now)

		target := strings.ToLower(strings.TrimSpace(gs.CurrentWord))
		if target == "" || cleaned != target {
			return nil
		}

		elapsed = now.Sub(gs.TurnStartTime).Seconds()
		remaining = float64(room.Settings.DrawTime) - elapsed
		if remaining < 0 {
			remaining = 0
		}

		speedBonus = int(math.Floor(remaining)) * 5
		score = 100 + speedBonus
		gs.Scores[sessionID] += score
		gs.PlayersGuessed = append(gs.PlayersGuessed, sessionID)

		correct = true
		word = target
		scores = gs.CopyScores()
		allGuessed = len(gs.PlayersGuessed) >= room.NonDrawerCount()
		return nil
	})
	if errors.Is(err, registry.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	if !correct {
		e.emit.ToRoom(roomID, "chat_message", internal.ChatMessageData{
			User:      user.Username,
			UserID:    sessionID,
			Message:   cleaned,
			Type:      "guess",
			Timestamp: timestamp,
		})
		return nil
	}

	e.logger.Info("correct guess",
		zap.String("room", roomID),
		zap.String("session", sessionID),
		zap.Int("score", score),
		zap.Bool("all_guessed", allGuessed))

	e.emit.ToRoom(roomID, "correct_guess", internal.CorrectGuessData{
		Player:        user.Username,
		PlayerID:      sessionID,
		Word:          word,
		Score:         score,
		SpeedBonus:    speedBonus,
		Scores:        scores,
		TimeElapsed:   round1(elapsed),
		TimeRemaining: round1(remaining),
	})
	e.emit.ToSession(sessionID, "guess_correct", map[string]any{
		"message": fmt.Sprintf("Correct! You guessed %q! +%d points", word, score),
		"score":   score,
		"word":    word,
	})

	if allGuessed {
		e.timers.Stop(roomID)
		e.endTurn(roomID, false, true)
	}
	return nil
}

// SendChat relays a plain chat message to the room.
func (e *Engine) SendChat(sessionID, message, fallbackRoomID string) error {
	roomID, err := e.currentRoom(sessionID, fallbackRoomID)
	if err != nil {
		return err
	}
	user, ok := e.reg.GetUser(sessionID)
	if !ok {
		return ErrNotInRoom
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	if len([]rune(message)) > internal.MaxChatMessageLen {
		return ErrMessageTooLong
	}

	e.emit.ToRoom(roomID, "chat_message", internal.ChatMessageData{
		User:      user.Username,
		UserID:    sessionID,
		Message:   message,
		Type:      "chat",
		Timestamp: internal.EpochSeconds(e.clock()),
	})
	return nil
}

// round1 mirrors the wire format's one-decimal timings.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
