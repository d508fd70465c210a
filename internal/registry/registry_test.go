package registry

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eehab-saadat/skribly-backend/internal"
)

func testSettings() internal.RoomSettings {
	return internal.RoomSettings{
		Rounds:         3,
		DrawTime:       80,
		WordDifficulty: internal.DifficultyEasy,
		MaxPlayers:     4,
	}
}

func mustUser(t *testing.T, r *Registry, name string) internal.User {
	t.Helper()
	u, err := r.CreateUser(name, "")
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	r := New(nil)

	t.Run("valid", func(t *testing.T) {
		u, err := r.CreateUser("alice", "")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.NotEmpty(t, u.SessionID)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := r.CreateUser("ab", "")
		assert.ErrorIs(t, err, ErrInvalidUsername)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := r.CreateUser("abcdefghijklmnopqrstu", "")
		assert.ErrorIs(t, err, ErrInvalidUsername)
	})

	t.Run("taken case-insensitively", func(t *testing.T) {
		_, err := r.CreateUser("ALICE", "")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("trims whitespace", func(t *testing.T) {
		u, err := r.CreateUser("  bobby  ", "")
		require.NoError(t, err)
		assert.Equal(t, "bobby", u.Username)
	})
}

func TestValidateUsername(t *testing.T) {
	r := New(nil)
	mustUser(t, r, "alice")

	assert.NoError(t, r.ValidateUsername("bob"))
	assert.ErrorIs(t, r.ValidateUsername("Alice"), ErrUsernameTaken)
	assert.ErrorIs(t, r.ValidateUsername("xy"), ErrInvalidUsername)
}

func TestCreateRoom(t *testing.T) {
	r := New(nil)
	host := mustUser(t, r, "alice")

	room, err := r.CreateRoom(host.SessionID, testSettings(), "test room")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.ID)
	assert.Equal(t, internal.StatusWaiting, room.Status)
	assert.Equal(t, host.SessionID, room.Host)
	assert.Equal(t, []string{host.SessionID}, room.Players)
	assert.Equal(t, map[string]int{host.SessionID: 0}, room.Game.Scores)

	u, _ := r.GetUser(host.SessionID)
	assert.Equal(t, room.ID, u.CurrentRoom)

	t.Run("unknown host", func(t *testing.T) {
		_, err := r.CreateRoom("missing", testSettings(), "")
		assert.ErrorIs(t, err, ErrHostUnknown)
	})

	t.Run("default name from host", func(t *testing.T) {
		host2 := mustUser(t, r, "carol")
		room2, err := r.CreateRoom(host2.SessionID, testSettings(), "")
		require.NoError(t, err)
		assert.Equal(t, "carol's Room", room2.Name)
	})
}

func TestAddPlayer(t *testing.T) {
	r := New(nil)
	host := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bobby")

	settings := testSettings()
	settings.MaxPlayers = 2
	room, err := r.CreateRoom(host.SessionID, settings, "")
	require.NoError(t, err)

	require.NoError(t, r.AddPlayer(room.ID, bob.SessionID))

	t.Run("idempotent re-add", func(t *testing.T) {
		require.NoError(t, r.AddPlayer(room.ID, bob.SessionID))
		got, _ := r.GetRoom(room.ID)
		assert.Len(t, got.Players, 2)
	})

	t.Run("scores seeded", func(t *testing.T) {
		got, _ := r.GetRoom(room.ID)
		assert.Equal(t, map[string]int{host.SessionID: 0, bob.SessionID: 0}, got.Game.Scores)
	})

	t.Run("full room", func(t *testing.T) {
		carol := mustUser(t, r, "carol")
		assert.ErrorIs(t, r.AddPlayer(room.ID, carol.SessionID), ErrRoomFull)
	})

	t.Run("game in progress", func(t *testing.T) {
		host2 := mustUser(t, r, "dave")
		room2, err := r.CreateRoom(host2.SessionID, testSettings(), "")
		require.NoError(t, err)
		require.NoError(t, r.UpdateRoomAtomically(room2.ID, func(room *internal.Room) error {
			room.Status = internal.StatusPlaying
			return nil
		}))
		eve := mustUser(t, r, "evee")
		assert.ErrorIs(t, r.AddPlayer(room2.ID, eve.SessionID), ErrGameInProgress)
	})

	t.Run("unknown room", func(t *testing.T) {
		assert.ErrorIs(t, r.AddPlayer("ZZZZZZ", bob.SessionID), ErrRoomNotFound)
	})
}

func TestRemovePlayer(t *testing.T) {
	r := New(nil)
	host := mustUser(t, r, "alice")
	bob := mustUser(t, r, "bobby")

	room, err := r.CreateRoom(host.SessionID, testSettings(), "")
	require.NoError(t, err)
	require.NoError(t, r.AddPlayer(room.ID, bob.SessionID))

	t.Run("host leaving promotes next player", func(t *testing.T) {
		updated, err := r.RemovePlayer(room.ID, host.SessionID)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, bob.SessionID, updated.Host)
		assert.Equal(t, []string{bob.SessionID}, updated.Players)
		assert.NotContains(t, updated.Game.Scores, host.SessionID)
	})

	t.Run("not present", func(t *testing.T) {
		_, err := r.RemovePlayer(room.ID, host.SessionID)
		assert.ErrorIs(t, err, ErrNotPresent)
	})

	t.Run("last player deletes room", func(t *testing.T) {
		updated, err := r.RemovePlayer(room.ID, bob.SessionID)
		require.NoError(t, err)
		assert.Nil(t, updated)
		assert.False(t, r.RoomExists(room.ID))

		u, _ := r.GetUser(bob.SessionID)
		assert.Empty(t, u.CurrentRoom)
	})
}

// Snapshots are deep copies; mutating one never leaks into the store.
func TestSnapshotIsolation(t *testing.T) {
	r := New(nil)
	host := mustUser(t, r, "alice")
	room, err := r.CreateRoom(host.SessionID, testSettings(), "")
	require.NoError(t, err)

	snap, ok := r.GetRoom(room.ID)
	require.True(t, ok)
	snap.Players = append(snap.Players, "intruder")
	snap.Game.Scores["intruder"] = 999

	fresh, _ := r.GetRoom(room.ID)
	assert.Equal(t, []string{host.SessionID}, fresh.Players)
	assert.NotContains(t, fresh.Game.Scores, "intruder")
}

func TestHostInvariant(t *testing.T) {
	r := New(nil)
	users := make([]internal.User, 0, 4)
	for _, name := range []string{"alice", "bobby", "carol", "dave"} {
		users = append(users, mustUser(t, r, name))
	}

	room, err := r.CreateRoom(users[0].SessionID, testSettings(), "")
	require.NoError(t, err)
	for _, u := range users[1:] {
		require.NoError(t, r.AddPlayer(room.ID, u.SessionID))
	}

	// Whoever leaves, host stays a member until the room dies.
	for _, u := range users {
		updated, err := r.RemovePlayer(room.ID, u.SessionID)
		require.NoError(t, err)
		if updated == nil {
			break
		}
		assert.Contains(t, updated.Players, updated.Host)
		assert.Equal(t, len(updated.Players), len(updated.Game.Scores))
	}
}

func TestCleanupInactive(t *testing.T) {
	r := New(nil)
	host := mustUser(t, r, "alice")
	old, err := r.CreateRoom(host.SessionID, testSettings(), "")
	require.NoError(t, err)

	host2 := mustUser(t, r, "bobby")
	fresh, err := r.CreateRoom(host2.SessionID, testSettings(), "")
	require.NoError(t, err)

	// Age the first room past the 24h cutoff.
	require.NoError(t, r.UpdateRoomAtomically(old.ID, func(room *internal.Room) error {
		room.CreatedAt = time.Now().Add(-25 * time.Hour)
		return nil
	}))

	removed := r.CleanupInactive()
	assert.Equal(t, []string{old.ID}, removed)
	assert.False(t, r.RoomExists(old.ID))
	assert.True(t, r.RoomExists(fresh.ID))

	u, _ := r.GetUser(host.SessionID)
	assert.Empty(t, u.CurrentRoom)
}

func TestMaterializeUser(t *testing.T) {
	r := New(nil)

	u, err := r.MaterializeUser("session-123", "ghost")
	require.NoError(t, err)
	assert.Equal(t, "session-123", u.SessionID)

	// Existing records win over re-materialization.
	again, err := r.MaterializeUser("session-123", "other")
	require.NoError(t, err)
	assert.Equal(t, "ghost", again.Username)
}
