package game

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/words"
)

// =============================================================================
// PROGRESSIVE HINTS
// =============================================================================

var hintSchedule = []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second}

// startHintLoop reveals letters of the current word at the fixed marks.
// It stops on its own when the word changes, the turn ends, or the room
// disappears; stopHints cancels it early.
func (e *Engine) startHintLoop(roomID, drawerID, word string, drawTime int) {
	ctx, cancel := context.WithCancel(context.Background())

	e.hintMu.Lock()
	if prev, ok := e.hints[roomID]; ok {
		prev()
	}
	e.hints[roomID] = cancel
	e.hintMu.Unlock()

	go func() {
		defer cancel()
		start := time.Now()

		for _, mark := range hintSchedule {
			if mark >= time.Duration(drawTime)*time.Second {
				return
			}

			wait := mark - time.Since(start)
			if wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return
				}
			}

			var elapsed float64
			live := false
			err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
				gs := &room.Game
				if room.Status != internal.StatusPlaying || gs.Phase != internal.PhaseDrawing {
					return nil
				}
				if gs.CurrentWord != word {
					return nil
				}
				live = true
				elapsed = e.clock().Sub(gs.TurnStartTime).Seconds()
				return nil
			})
			if err != nil || !live {
				return
			}

			// The goroutine can wake a hair before the turn clock crosses the
			// mark; clamp so the reveal count matches the schedule.
			if at := mark.Seconds(); elapsed < at {
				elapsed = at
			}

			hint := words.ProgressiveHint(word, elapsed)
			e.logger.Debug("hint update",
				zap.String("room", roomID),
				zap.String("hint", hint),
				zap.Float64("elapsed", elapsed))

			e.emit.ToRoom(roomID, "hint_update", internal.HintUpdateData{
				WordHint:    hint,
				WordLength:  len([]rune(word)),
				ElapsedTime: round1(elapsed),
				DrawerID:    drawerID,
			})
		}
	}()
}

// stopHints cancels the room's hint schedule if one is running.
func (e *Engine) stopHints(roomID string) {
	e.hintMu.Lock()
	defer e.hintMu.Unlock()
	if cancel, ok := e.hints[roomID]; ok {
		cancel()
		delete(e.hints, roomID)
	}
}
