package game

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eehab-saadat/skribly-backend/internal"
	"github.com/eehab-saadat/skribly-backend/internal/registry"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type sentEvent struct {
	scope   string // "room", "session", "room-except"
	target  string
	except  string
	event   string
	payload any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []sentEvent
}

func newFakeEmitter() *fakeEmitter { return &fakeEmitter{} }

func (f *fakeEmitter) ToRoom(roomID, event string, payload any) {
	f.record(sentEvent{scope: "room", target: roomID, event: event, payload: payload})
}

func (f *fakeEmitter) ToSession(sessionID, event string, payload any) {
	f.record(sentEvent{scope: "session", target: sessionID, event: event, payload: payload})
}

func (f *fakeEmitter) ToRoomExcept(roomID, except, event string, payload any) {
	f.record(sentEvent{scope: "room-except", target: roomID, except: except, event: event, payload: payload})
}

func (f *fakeEmitter) record(e sentEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeEmitter) byType(event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.event)
	}
	return names
}

func (f *fakeEmitter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

type fakeWords struct {
	valid []string
}

func (f fakeWords) RandomWords(internal.WordDifficulty, int) []string {
	return []string{"cat", "dog", "sun"}
}

func (f fakeWords) RandomWord(internal.WordDifficulty) string { return "cat" }

func (f fakeWords) IsValid(word string, _ internal.WordDifficulty) bool {
	for _, w := range f.valid {
		if strings.EqualFold(w, word) {
			return true
		}
	}
	return false
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	engine *Engine
	reg    *registry.Registry
	em     *fakeEmitter
	now    time.Time
}

// newHarness builds an engine with long phase timers (expiry paths are driven
// directly) and a controllable clock.
func newHarness(t *testing.T) *harness {
	t.Helper()

	reg := registry.New(nil)
	em := newFakeEmitter()
	timers := NewTimerService(em, reg.RoomExists, nil)
	cfg := Config{
		WordSelectionTime: time.Hour,
		ResultDisplayTime: time.Hour,
		IntermissionTime:  time.Hour,
	}
	words := fakeWords{valid: []string{"cat", "dog", "sun"}}
	e := NewEngine(reg, em, timers, words, cfg, nil)

	h := &harness{engine: e, reg: reg, em: em, now: time.Unix(1_700_000_000, 0)}
	e.clock = func() time.Time { return h.now }
	return h
}

func (h *harness) advanceClock(d time.Duration) { h.now = h.now.Add(d) }

func (h *harness) user(t *testing.T, name string) internal.User {
	t.Helper()
	u, err := h.reg.CreateUser(name, "")
	require.NoError(t, err)
	return u
}

// twoPlayerRoom seats alice (host) and bobby in a waiting room.
func (h *harness) twoPlayerRoom(t *testing.T, settings internal.RoomSettings) (roomID string, alice, bob internal.User) {
	t.Helper()
	alice = h.user(t, "alice")
	bob = h.user(t, "bobby")
	room, err := h.reg.CreateRoom(alice.SessionID, settings, "")
	require.NoError(t, err)
	require.NoError(t, h.reg.AddPlayer(room.ID, bob.SessionID))
	return room.ID, alice, bob
}

func easySettings(rounds, drawTime int) internal.RoomSettings {
	return internal.RoomSettings{
		Rounds:         rounds,
		DrawTime:       drawTime,
		WordDifficulty: internal.DifficultyEasy,
		MaxPlayers:     2,
	}
}

func (h *harness) room(t *testing.T, roomID string) *internal.Room {
	t.Helper()
	room, ok := h.reg.GetRoom(roomID)
	require.True(t, ok)
	return room
}

func (h *harness) drawer(t *testing.T, roomID string) string {
	t.Helper()
	return h.room(t, roomID).Game.CurrentDrawer
}

// =============================================================================
// START GAME
// =============================================================================

func TestStartGameEmitsOpeningSequence(t *testing.T) {
	h := newHarness(t)
	roomID, alice, bob := h.twoPlayerRoom(t, easySettings(1, 60))

	require.NoError(t, h.engine.StartGame(alice.SessionID))

	names := h.em.eventNames()
	require.GreaterOrEqual(t, len(names), 4)
	assert.Equal(t, []string{"game_started", "room_updated", "round_started", "word_selection_started"}, names[:4])

	room := h.room(t, roomID)
	assert.Equal(t, internal.StatusPlaying, room.Status)
	assert.Equal(t, internal.PhaseWordSelection, room.Game.Phase)
	assert.Equal(t, 1, room.Game.CurrentRound)
	assert.Equal(t, map[string]int{alice.SessionID: 0, bob.SessionID: 0}, room.Game.Scores)
	assert.ElementsMatch(t, []string{alice.SessionID, bob.SessionID}, room.Game.DrawerOrder)
	assert.Contains(t, room.Game.DrawerOrder, room.Game.CurrentDrawer)

	started := h.em.byType("round_started")
	require.Len(t, started, 1)
	payload := started[0].payload.(internal.RoundStartedData)
	assert.Equal(t, 1, payload.Round)
	assert.Equal(t, 1, payload.TotalRounds)
	assert.Equal(t, room.Game.CurrentDrawer, payload.Drawer)

	selection := h.em.byType("word_selection_started")
	require.Len(t, selection, 1)
	sel := selection[0].payload.(internal.WordSelectionStartedData)
	assert.Len(t, sel.Words, 3)
	assert.Equal(t, internal.PhaseWordSelection, sel.Phase)
}

func TestStartGameAuthorization(t *testing.T) {
	h := newHarness(t)
	_, alice, bob := h.twoPlayerRoom(t, easySettings(1, 60))

	t.Run("non-host rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.StartGame(bob.SessionID), ErrNotHost)
	})

	t.Run("unknown session rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.StartGame("nobody"), ErrNotInRoom)
	})

	t.Run("needs two players", func(t *testing.T) {
		solo := h.user(t, "carol")
		_, err := h.reg.CreateRoom(solo.SessionID, easySettings(1, 60), "")
		require.NoError(t, err)
		assert.ErrorIs(t, h.engine.StartGame(solo.SessionID), ErrNotEnough)
	})

	t.Run("double start rejected", func(t *testing.T) {
		require.NoError(t, h.engine.StartGame(alice.SessionID))
		assert.ErrorIs(t, h.engine.StartGame(alice.SessionID), ErrAlreadyPlaying)
	})
}

// =============================================================================
// WORD SELECTION
// =============================================================================

func TestSelectWord(t *testing.T) {
	h := newHarness(t)
	roomID, alice, bob := h.twoPlayerRoom(t, easySettings(1, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))

	drawer := h.drawer(t, roomID)
	guesser := alice.SessionID
	if drawer == alice.SessionID {
		guesser = bob.SessionID
	}

	t.Run("non-drawer rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SelectWord(guesser, "cat", ""), ErrNotYourTurn)
	})

	t.Run("invalid word rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SelectWord(drawer, "zebra", ""), ErrInvalidWord)
	})

	t.Run("empty word rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SelectWord(drawer, "  ", ""), ErrWordRequired)
	})

	h.em.reset()
	require.NoError(t, h.engine.SelectWord(drawer, "cat", ""))

	room := h.room(t, roomID)
	assert.Equal(t, internal.PhaseDrawing, room.Game.Phase)
	assert.Equal(t, "cat", room.Game.CurrentWord)
	assert.Equal(t, []string{"cat"}, room.Game.WordsUsed)
	assert.False(t, room.Game.TurnStartTime.IsZero())

	// The drawer hears the word; everyone else hears the mask.
	selected := h.em.byType("word_selected")
	require.Len(t, selected, 2)

	toDrawer := selected[0]
	assert.Equal(t, "session", toDrawer.scope)
	assert.Equal(t, drawer, toDrawer.target)
	drawerPayload := toDrawer.payload.(internal.WordSelectedData)
	assert.Equal(t, "cat", drawerPayload.Word)
	assert.Empty(t, drawerPayload.WordHint)

	toOthers := selected[1]
	assert.Equal(t, "room-except", toOthers.scope)
	assert.Equal(t, drawer, toOthers.except)
	othersPayload := toOthers.payload.(internal.WordSelectedData)
	assert.Equal(t, "___", othersPayload.WordHint)
	assert.Equal(t, 3, othersPayload.WordLength)
	assert.Empty(t, othersPayload.Word)

	drawing := h.em.byType("drawing_started")
	require.Len(t, drawing, 1)
	ds := drawing[0].payload.(internal.DrawingStartedData)
	assert.Equal(t, "___", ds.WordHint)
	assert.Equal(t, 60, ds.TimeLimit)

	t.Run("second select rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SelectWord(drawer, "dog", ""), ErrBadPhase)
	})
}

func TestAutoSelectWordOnTimeout(t *testing.T) {
	h := newHarness(t)
	roomID, alice, _ := h.twoPlayerRoom(t, easySettings(1, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))

	h.em.reset()
	h.engine.autoSelectWord(roomID)

	room := h.room(t, roomID)
	assert.Equal(t, internal.PhaseDrawing, room.Game.Phase)
	assert.Equal(t, "cat", room.Game.CurrentWord)

	selected := h.em.byType("word_selected")
	require.Len(t, selected, 2)
	for _, e := range selected {
		assert.True(t, e.payload.(internal.WordSelectedData).AutoSelected)
	}

	// A late auto-select (e.g. stale timer) is a no-op.
	h.em.reset()
	h.engine.autoSelectWord(roomID)
	assert.Empty(t, h.em.eventNames())
}

// =============================================================================
// GUESSING AND SCORING
// =============================================================================

func TestSubmitGuessScoring(t *testing.T) {
	h := newHarness(t)
	roomID, alice, bob := h.twoPlayerRoom(t, easySettings(1, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))

	drawer := h.drawer(t, roomID)
	guesser := alice.SessionID
	if drawer == alice.SessionID {
		guesser = bob.SessionID
	}

	require.NoError(t, h.engine.SelectWord(drawer, "cat", ""))

	t.Run("drawer cannot guess", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SubmitGuess(drawer, "cat", ""), ErrOwnDrawing)
	})

	t.Run("empty guess rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SubmitGuess(guesser, "   ", ""), ErrEmptyGuess)
	})

	t.Run("wrong guess becomes chat", func(t *testing.T) {
		h.em.reset()
		require.NoError(t, h.engine.SubmitGuess(guesser, "Dog", ""))
		chats := h.em.byType("chat_message")
		require.Len(t, chats, 1)
		msg := chats[0].payload.(internal.ChatMessageData)
		assert.Equal(t, "guess", msg.Type)
		assert.Equal(t, "dog", msg.Message)

		room := h.room(t, roomID)
		assert.Zero(t, room.Game.Scores[guesser])
	})

	// Correct guess at 15.4s: 100 + floor(44.6)*5 = 320.
	h.advanceClock(15400 * time.Millisecond)
	h.em.reset()
	require.NoError(t, h.engine.SubmitGuess(guesser, "  Cat ", ""))

	correct := h.em.byType("correct_guess")
	require.Len(t, correct, 1)
	cg := correct[0].payload.(internal.CorrectGuessData)
	assert.Equal(t, 320, cg.Score)
	assert.Equal(t, 220, cg.SpeedBonus)
	assert.Equal(t, "cat", cg.Word)
	assert.Equal(t, guesser, cg.PlayerID)
	assert.InDelta(t, 15.4, cg.TimeElapsed, 0.01)
	assert.InDelta(t, 44.6, cg.TimeRemaining, 0.01)
	// The correct_guess snapshot predates the drawer bonus.
	assert.Equal(t, map[string]int{drawer: 0, guesser: 320}, cg.Scores)

	private := h.em.byType("guess_correct")
	require.Len(t, private, 1)
	assert.Equal(t, "session", private[0].scope)
	assert.Equal(t, guesser, private[0].target)

	// Everyone guessed: turn ends, drawer gets +50 before the snapshot.
	ended := h.em.byType("turn_ended")
	require.Len(t, ended, 1)
	te := ended[0].payload.(internal.TurnEndedData)
	assert.True(t, te.AllGuessed)
	assert.False(t, te.Timeout)
	assert.Equal(t, "cat", te.Word)
	assert.Equal(t, map[string]int{drawer: 50, guesser: 320}, te.Scores)
	require.Len(t, te.Results, 2)
	assert.Equal(t, guesser, te.Results[0].PlayerID)
	assert.Equal(t, 320, te.Results[0].Score)
	assert.Equal(t, 50, te.Results[1].Score)

	room := h.room(t, roomID)
	assert.Equal(t, internal.PhaseResults, room.Game.Phase)
	assert.Equal(t, []string{guesser}, room.Game.PlayersGuessed)

	t.Run("repeat guess rejected", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.SubmitGuess(guesser, "cat", ""), ErrAlreadyGuessed)
	})
}

func TestGuessScoreClampedAtZeroRemaining(t *testing.T) {
	h := newHarness(t)
	roomID, alice, bob := h.twoPlayerRoom(t, easySettings(1, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))

	drawer := h.drawer(t, roomID)
	guesser := alice.SessionID
	if drawer == alice.SessionID {
		guesser = bob.SessionID
	}
	require.NoError(t, h.engine.SelectWord(drawer, "cat", ""))

	h.advanceClock(90 * time.Second) // past draw_time
	require.NoError(t, h.engine.SubmitGuess(guesser, "cat", ""))

	cg := h.em.byType("correct_guess")[0].payload.(internal.CorrectGuessData)
	assert.Equal(t, 100, cg.Score)
	assert.Equal(t, 0, cg.SpeedBonus)
	assert.Zero(t, cg.TimeRemaining)
}

// =============================================================================
// TURN AND ROUND ADVANCE
// =============================================================================

func TestFullGameRotationAndEnd(t *testing.T) {
	h := newHarness(t)
	roomID, alice, bob := h.twoPlayerRoom(t, easySettings(1, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))

	firstDrawer := h.drawer(t, roomID)
	firstGuesser := alice.SessionID
	if firstDrawer == alice.SessionID {
		firstGuesser = bob.SessionID
	}

	// Turn 1: guesser nails it at 15.4s for 320; drawer banks +50.
	require.NoError(t, h.engine.SelectWord(firstDrawer, "cat", ""))
	h.advanceClock(15400 * time.Millisecond)
	require.NoError(t, h.engine.SubmitGuess(firstGuesser, "cat", ""))

	// Results pause elapses.
	h.em.reset()
	h.engine.advanceTurn(roomID)

	room := h.room(t, roomID)
	require.Equal(t, internal.StatusPlaying, room.Status)
	secondDrawer := room.Game.CurrentDrawer
	assert.NotEqual(t, firstDrawer, secondDrawer, "rotation must hand the pen over")
	assert.Equal(t, 1, room.Game.CurrentRound)

	// Turn 2 times out with no correct guess.
	require.NoError(t, h.engine.SelectWord(secondDrawer, "dog", ""))
	h.advanceClock(61 * time.Second)
	require.NoError(t, h.engine.TurnTimeout(roomID))

	ended := h.em.byType("turn_ended")
	require.Len(t, ended, 1)
	assert.True(t, ended[0].payload.(internal.TurnEndedData).Timeout)

	// Second results pause: rotation is exhausted, one round configured, so
	// the game ends.
	h.em.reset()
	h.engine.advanceTurn(roomID)

	room = h.room(t, roomID)
	assert.Equal(t, internal.StatusEnded, room.Status)
	assert.Equal(t, internal.PhaseEnded, room.Game.Phase)

	over := h.em.byType("game_ended")
	require.Len(t, over, 1)
	ge := over[0].payload.(internal.GameEndedData)
	require.NotNil(t, ge.Winner)
	assert.Equal(t, firstGuesser, ge.Winner.PlayerID)
	assert.Equal(t, 320, ge.Winner.Score)
	require.Len(t, ge.FinalResults, 2)
	assert.Equal(t, 50, ge.FinalResults[1].Score)
	assert.Equal(t, 1, ge.TotalRounds)
}

func TestDrawerRotationProperty(t *testing.T) {
	h := newHarness(t)

	users := []internal.User{h.user(t, "alice"), h.user(t, "bobby"), h.user(t, "carol")}
	settings := internal.RoomSettings{
		Rounds:         2,
		DrawTime:       60,
		WordDifficulty: internal.DifficultyEasy,
		MaxPlayers:     4,
	}
	room, err := h.reg.CreateRoom(users[0].SessionID, settings, "")
	require.NoError(t, err)
	for _, u := range users[1:] {
		require.NoError(t, h.reg.AddPlayer(room.ID, u.SessionID))
	}
	require.NoError(t, h.engine.StartGame(users[0].SessionID))

	drawn := map[string]int{}
	for turns := 0; turns < 20; turns++ {
		snap := h.room(t, room.ID)
		if snap.Status != internal.StatusPlaying {
			break
		}
		require.Equal(t, internal.PhaseWordSelection, snap.Game.Phase)
		drawn[snap.Game.CurrentDrawer]++

		require.NoError(t, h.engine.SelectWord(snap.Game.CurrentDrawer, "cat", ""))
		h.advanceClock(61 * time.Second)
		require.NoError(t, h.engine.TurnTimeout(room.ID))
		h.engine.advanceTurn(room.ID)

		// Ride through the intermission when a round boundary was crossed.
		if mid := h.room(t, room.ID); mid.Status == internal.StatusPlaying &&
			mid.Game.Phase == internal.PhaseIntermission {
			h.engine.startTurn(room.ID)
		}
	}

	assert.Equal(t, internal.StatusEnded, h.room(t, room.ID).Status)
	for _, u := range users {
		assert.Equal(t, settings.Rounds, drawn[u.SessionID],
			"player %s must draw exactly once per round", u.Username)
	}
}

func TestRoundCompleteIntermission(t *testing.T) {
	h := newHarness(t)
	roomID, alice, bob := h.twoPlayerRoom(t, easySettings(2, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))
	_ = bob

	// Exhaust round 1 (two turns).
	for i := 0; i < 2; i++ {
		drawer := h.drawer(t, roomID)
		require.NoError(t, h.engine.SelectWord(drawer, "cat", ""))
		h.advanceClock(61 * time.Second)
		require.NoError(t, h.engine.TurnTimeout(roomID))

		h.em.reset()
		h.engine.advanceTurn(roomID)
		if i == 0 {
			// Mid-round advance goes straight to the next word selection.
			assert.Empty(t, h.em.byType("round_complete"))
		}
	}

	// Crossing the round boundary announces the intermission.
	complete := h.em.byType("round_complete")
	require.Len(t, complete, 1)
	payload := complete[0].payload.(map[string]any)
	assert.Equal(t, 2, payload["next_round"])

	room := h.room(t, roomID)
	assert.Equal(t, internal.PhaseIntermission, room.Game.Phase)
	assert.Equal(t, 2, room.Game.CurrentRound)
}

// =============================================================================
// TURN TIMEOUT GUARD
// =============================================================================

func TestTurnTimeoutGuarded(t *testing.T) {
	h := newHarness(t)
	roomID, alice, _ := h.twoPlayerRoom(t, easySettings(1, 60))
	require.NoError(t, h.engine.StartGame(alice.SessionID))
	drawer := h.drawer(t, roomID)
	require.NoError(t, h.engine.SelectWord(drawer, "cat", ""))

	// A premature turn_timeout from a client must not end the turn.
	h.advanceClock(5 * time.Second)
	require.NoError(t, h.engine.TurnTimeout(roomID))
	assert.Equal(t, internal.PhaseDrawing, h.room(t, roomID).Game.Phase)

	h.advanceClock(56 * time.Second)
	require.NoError(t, h.engine.TurnTimeout(roomID))
	assert.Equal(t, internal.PhaseResults, h.room(t, roomID).Game.Phase)

	t.Run("unknown room", func(t *testing.T) {
		assert.ErrorIs(t, h.engine.TurnTimeout("ZZZZZZ"), ErrRoomNotFound)
	})
}

// =============================================================================
// LEAVE / CHAT
// =============================================================================

func TestLeaveRoomMidTurnEndsDrawerTurn(t *testing.T) {
	h := newHarness(t)

	users := []internal.User{h.user(t, "alice"), h.user(t, "bobby"), h.user(t, "carol")}
	settings := internal.RoomSettings{
		Rounds: 1, DrawTime: 60, WordDifficulty: internal.DifficultyEasy, MaxPlayers: 4,
	}
	room, err := h.reg.CreateRoom(users[0].SessionID, settings, "")
	require.NoError(t, err)
	for _, u := range users[1:] {
		require.NoError(t, h.reg.AddPlayer(room.ID, u.SessionID))
	}
	require.NoError(t, h.engine.StartGame(users[0].SessionID))

	drawer := h.drawer(t, room.ID)
	require.NoError(t, h.engine.SelectWord(drawer, "cat", ""))

	h.em.reset()
	updated, err := h.engine.LeaveRoom(drawer, room.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.NotContains(t, updated.Players, drawer)

	require.Len(t, h.em.byType("turn_ended"), 1)
	assert.Equal(t, internal.PhaseResults, h.room(t, room.ID).Game.Phase)
}

func TestSendChat(t *testing.T) {
	h := newHarness(t)
	_, alice, _ := h.twoPlayerRoom(t, easySettings(1, 60))

	assert.ErrorIs(t, h.engine.SendChat(alice.SessionID, "  ", ""), ErrEmptyMessage)
	assert.ErrorIs(t, h.engine.SendChat(alice.SessionID, strings.Repeat("x", 201), ""), ErrMessageTooLong)

	h.em.reset()
	require.NoError(t, h.engine.SendChat(alice.SessionID, "hello room", ""))
	chats := h.em.byType("chat_message")
	require.Len(t, chats, 1)
	msg := chats[0].payload.(internal.ChatMessageData)
	assert.Equal(t, "chat", msg.Type)
	assert.Equal(t, "hello room", msg.Message)
	assert.Equal(t, "alice", msg.User)
}
