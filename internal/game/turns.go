package game

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
	"github.com/eehab-saadat/skribly-backend/internal/words"
)

// =============================================================================
// GAME FLOW - TURN AND ROUND MANAGEMENT
// =============================================================================

func shuffleStrings(s []string) {
	rand.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// startTurn selects the drawer for the current index, resets per-turn state
// and opens word selection.
func (e *Engine) startTurn(roomID string) {
	var (
		drawerID    string
		round       int
		totalRounds int
		options     []string
		gameOver    bool
	)
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		if room.Status != internal.StatusPlaying {
			return ErrBadPhase
		}
		gs := &room.Game
		if len(gs.DrawerOrder) == 0 {
			return ErrBadPhase
		}

		// Skip drawers who left the room since the order was fixed.
		for attempts := 0; attempts < len(gs.DrawerOrder); attempts++ {
			if gs.CurrentDrawerIndex >= len(gs.DrawerOrder) {
				gs.CurrentDrawerIndex = 0
				gs.CurrentRound++
				if gs.CurrentRound > room.Settings.Rounds {
					gameOver = true
					return nil
				}
			}
			if room.HasPlayer(gs.DrawerOrder[gs.CurrentDrawerIndex]) {
				break
			}
			gs.CurrentDrawerIndex++
		}
		if gs.CurrentDrawerIndex >= len(gs.DrawerOrder) ||
			!room.HasPlayer(gs.DrawerOrder[gs.CurrentDrawerIndex]) {
			gameOver = true
			return nil
		}

		gs.CurrentDrawer = gs.DrawerOrder[gs.CurrentDrawerIndex]
		gs.CurrentWord = ""
		gs.PlayersGuessed = nil
		gs.TurnStartTime = time.Time{}
		gs.WordOptions = e.words.RandomWords(room.Settings.WordDifficulty, 3)
		gs.Phase = internal.PhaseWordSelection

		drawerID = gs.CurrentDrawer
		round = gs.CurrentRound
		totalRounds = room.Settings.Rounds
		options = append([]string(nil), gs.WordOptions...)
		return nil
	})
	if err != nil {
		e.logger.Warn("start turn aborted", zap.String("room", roomID), zap.Error(err))
		return
	}
	if gameOver {
		e.endGame(roomID)
		return
	}

	drawerName := e.reg.Username(drawerID)
	e.logger.Info("turn started",
		zap.String("room", roomID),
		zap.String("drawer", drawerID),
		zap.Int("round", round))

	e.emit.ToRoom(roomID, "round_started", internal.RoundStartedData{
		Round:       round,
		Drawer:      drawerID,
		DrawerName:  drawerName,
		TotalRounds: totalRounds,
	})
	e.emit.ToRoom(roomID, "word_selection_started", internal.WordSelectionStartedData{
		DrawerID:   drawerID,
		DrawerName: drawerName,
		Words:      options,
		TimeLimit:  int(e.cfg.WordSelectionTime.Seconds()),
		Phase:      internal.PhaseWordSelection,
	})

	e.timers.Start(roomID, e.cfg.WordSelectionTime, internal.PhaseWordSelection, func() {
		e.autoSelectWord(roomID)
	})
}

// SelectWord is the drawer committing to a word during word selection.
func (e *Engine) SelectWord(sessionID, word, fallbackRoomID string) error {
	roomID, err := e.currentRoom(sessionID, fallbackRoomID)
	if err != nil {
		return err
	}

	word = strings.TrimSpace(word)
	if word == "" {
		return ErrWordRequired
	}

	err = e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if gs.CurrentDrawer != sessionID {
			return ErrNotYourTurn
		}
		if room.Status != internal.StatusPlaying || gs.Phase != internal.PhaseWordSelection {
			return ErrBadPhase
		}
		if !e.words.IsValid(word, room.Settings.WordDifficulty) {
			return ErrInvalidWord
		}

		gs.CurrentWord = word
		gs.WordsUsed = append(gs.WordsUsed, word)
		gs.TurnStartTime = e.clock()
		gs.PlayersGuessed = nil
		gs.WordOptions = nil
		return nil
	})
	if errors.Is(err, registry.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	e.logger.Info("word selected",
		zap.String("room", roomID), zap.String("drawer", sessionID))

	e.timers.Stop(roomID)
	e.enterDrawing(roomID, false)
	return nil
}

// autoSelectWord runs when word selection times out: the engine picks for
// the drawer and enters drawing on the same path a manual pick takes.
func (e *Engine) autoSelectWord(roomID string) {
	var word string
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if room.Status != internal.StatusPlaying || gs.Phase != internal.PhaseWordSelection {
			return ErrBadPhase
		}
		if gs.CurrentWord != "" {
			return ErrBadPhase
		}

		word = e.words.RandomWord(room.Settings.WordDifficulty)
		gs.CurrentWord = word
		gs.WordsUsed = append(gs.WordsUsed, word)
		gs.TurnStartTime = e.clock()
		gs.PlayersGuessed = nil
		gs.WordOptions = nil
		return nil
	})
	if err != nil {
		return
	}

	e.logger.Info("auto-selected word", zap.String("room", roomID))

	// The selection timer is already done; stop anyway so the drawing timer
	// never races a stale one.
	e.timers.Stop(roomID)
	e.enterDrawing(roomID, true)
}

// enterDrawing announces the chosen word (full to the drawer, masked to the
// rest), starts the drawing timer and the hint schedule.
func (e *Engine) enterDrawing(roomID string, autoSelected bool) {
	var (
		drawerID string
		word     string
		drawTime int
	)
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if room.Status != internal.StatusPlaying || gs.CurrentWord == "" || gs.CurrentDrawer == "" {
			return ErrBadPhase
		}
		gs.Phase = internal.PhaseDrawing
		if gs.TurnStartTime.IsZero() {
			gs.TurnStartTime = e.clock()
		}

		drawerID = gs.CurrentDrawer
		word = gs.CurrentWord
		drawTime = room.Settings.DrawTime
		return nil
	})
	if err != nil {
		e.logger.Warn("enter drawing aborted", zap.String("room", roomID), zap.Error(err))
		return
	}

	drawerName := e.reg.Username(drawerID)
	hint := words.Masked(word)
	wordLen := len([]rune(word))

	e.emit.ToSession(drawerID, "word_selected", internal.WordSelectedData{
		Word:         word,
		TimeLimit:    drawTime,
		DrawerID:     drawerID,
		Phase:        internal.PhaseDrawing,
		AutoSelected: autoSelected,
	})
	e.emit.ToRoomExcept(roomID, drawerID, "word_selected", internal.WordSelectedData{
		WordHint:     hint,
		WordLength:   wordLen,
		TimeLimit:    drawTime,
		DrawerID:     drawerID,
		Phase:        internal.PhaseDrawing,
		AutoSelected: autoSelected,
	})
	e.emit.ToRoom(roomID, "drawing_started", internal.DrawingStartedData{
		DrawerID:   drawerID,
		DrawerName: drawerName,
		WordHint:   hint,
		WordLength: wordLen,
		TimeLimit:  drawTime,
		Phase:      internal.PhaseDrawing,
	})

	e.timers.Start(roomID, time.Duration(drawTime)*time.Second, internal.PhaseDrawing, func() {
		e.emit.ToRoom(roomID, "turn_timeout", map[string]any{
			"room_id": roomID,
			"message": "Time is up!",
		})
		e.endTurn(roomID, true, false)
	})
	e.startHintLoop(roomID, drawerID, word, drawTime)

	e.logger.Info("drawing started",
		zap.String("room", roomID),
		zap.String("drawer", drawerID),
		zap.Int("draw_time", drawTime))
}

// endTurn closes the current turn: freezes scores (drawer bonus first when
// everyone guessed), broadcasts results, schedules the advance.
func (e *Engine) endTurn(roomID string, timeout, allGuessed bool) {
	var (
		word     string
		drawerID string
		players  []string
		scores   map[string]int
	)
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if room.Status != internal.StatusPlaying {
			return ErrBadPhase
		}
		if gs.Phase != internal.PhaseDrawing && gs.Phase != internal.PhaseWordSelection {
			return ErrBadPhase
		}
		gs.Phase = internal.PhaseResults

		// Drawer bonus lands before the results snapshot.
		if allGuessed && gs.CurrentDrawer != "" {
			gs.Scores[gs.CurrentDrawer] += 50
		}

		word = gs.CurrentWord
		drawerID = gs.CurrentDrawer
		players = append([]string(nil), room.Players...)
		scores = gs.CopyScores()
		return nil
	})
	if err != nil {
		return
	}

	e.stopHints(roomID)

	results := e.buildResults(players, scores)
	e.logger.Info("turn ended",
		zap.String("room", roomID),
		zap.String("word", word),
		zap.Bool("timeout", timeout),
		zap.Bool("all_guessed", allGuessed))

	e.emit.ToRoom(roomID, "turn_ended", internal.TurnEndedData{
		Word:        word,
		Drawer:      drawerID,
		DrawerName:  e.reg.Username(drawerID),
		Results:     results,
		Scores:      scores,
		Timeout:     timeout,
		AllGuessed:  allGuessed,
		NextPhaseIn: int(e.cfg.ResultDisplayTime.Seconds()),
	})

	e.timers.Start(roomID, e.cfg.ResultDisplayTime, internal.PhaseResults, func() {
		e.advanceTurn(roomID)
	})
}

// advanceTurn moves the rotation forward after the results pause: next
// drawer, next round behind an intermission, or the end of the game.
func (e *Engine) advanceTurn(roomID string) {
	const (
		actNextTurn = iota
		actIntermission
		actEndGame
	)

	action := actNextTurn
	nextRound := 0
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if room.Status != internal.StatusPlaying || gs.Phase != internal.PhaseResults {
			return ErrBadPhase
		}

		gs.CurrentDrawerIndex++
		if gs.CurrentDrawerIndex >= len(gs.DrawerOrder) {
			gs.CurrentDrawerIndex = 0
			gs.CurrentRound++
			if gs.CurrentRound > room.Settings.Rounds {
				action = actEndGame
				return nil
			}
			action = actIntermission
			nextRound = gs.CurrentRound
			gs.Phase = internal.PhaseIntermission
		}
		return nil
	})
	if err != nil {
		return
	}

	switch action {
	case actEndGame:
		e.endGame(roomID)
	case actIntermission:
		e.emit.ToRoom(roomID, "round_complete", map[string]any{
			"next_round":        nextRound,
			"intermission_time": int(e.cfg.IntermissionTime.Seconds()),
		})
		e.timers.Start(roomID, e.cfg.IntermissionTime, internal.PhaseIntermission, func() {
			e.startTurn(roomID)
		})
	default:
		e.startTurn(roomID)
	}
}

// endGame finalizes scores and retires the room's state machine.
func (e *Engine) endGame(roomID string) {
	var (
		players     []string
		scores      map[string]int
		totalRounds int
	)
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		if room.Status != internal.StatusPlaying {
			return ErrBadPhase
		}
		room.Status = internal.StatusEnded
		room.Game.Phase = internal.PhaseEnded

		players = append([]string(nil), room.Players...)
		scores = room.Game.CopyScores()
		totalRounds = room.Settings.Rounds
		return nil
	})
	if err != nil {
		return
	}

	e.stopHints(roomID)
	e.timers.Stop(roomID)

	results := e.buildResults(players, scores)
	var winner *internal.TurnResult
	if len(results) > 0 {
		winner = &results[0]
	}

	winnerName := "none"
	if winner != nil {
		winnerName = winner.Username
	}
	e.logger.Info("game ended",
		zap.String("room", roomID), zap.String("winner", winnerName))

	e.emit.ToRoom(roomID, "game_ended", internal.GameEndedData{
		Winner:       winner,
		FinalResults: results,
		TotalRounds:  totalRounds,
	})
}

// TurnTimeout handles the inbound turn_timeout event. The server's own timer
// is authoritative, so this only acts when the drawing clock really has run
// out.
func (e *Engine) TurnTimeout(roomID string) error {
	if roomID == "" {
		return ErrRoomNotFound
	}

	expired := false
	err := e.reg.UpdateRoomAtomically(roomID, func(room *internal.Room) error {
		gs := &room.Game
		if room.Status != internal.StatusPlaying || gs.Phase != internal.PhaseDrawing {
			return nil
		}
		if gs.TurnStartTime.IsZero() {
			return nil
		}
		elapsed := e.clock().Sub(gs.TurnStartTime).Seconds()
		expired = elapsed >= float64(room.Settings.DrawTime)
		return nil
	})
	if errors.Is(err, registry.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	if err != nil {
		return err
	}

	if expired {
		e.timers.Stop(roomID)
		e.endTurn(roomID, true, false)
	}
	return nil
}

func (e *Engine) buildResults(players []string, scores map[string]int) []internal.TurnResult {
	results := make([]internal.TurnResult, 0, len(players))
	for _, id := range players {
		results = append(results, internal.TurnResult{
			PlayerID: id,
			Username: e.reg.Username(id),
			Score:    scores[id],
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}
