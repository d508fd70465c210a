package game

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eehab-saadat/skribly-backend/internal"
)

// nullEmitter drops everything; tick payload tests use fakeEmitter instead.
type nullEmitter struct{}

func (nullEmitter) ToRoom(string, string, any)           {}
func (nullEmitter) ToSession(string, string, any)        {}
func (nullEmitter) ToRoomExcept(string, string, string, any) {}

func alwaysExists(string) bool { return true }

func TestTimerExpiresOnce(t *testing.T) {
	ts := NewTimerService(nullEmitter{}, alwaysExists, nil)

	var fired atomic.Int32
	ts.Start("ROOM01", 50*time.Millisecond, internal.PhaseDrawing, func() {
		fired.Add(1)
	})

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestTimerStopPreventsExpiry(t *testing.T) {
	ts := NewTimerService(nullEmitter{}, alwaysExists, nil)

	var fired atomic.Int32
	ts.Start("ROOM01", 80*time.Millisecond, internal.PhaseDrawing, func() {
		fired.Add(1)
	})
	time.Sleep(20 * time.Millisecond)
	ts.Stop("ROOM01")

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load(), "cancelled timer must never fire")
}

func TestTimerStartReplacesPrior(t *testing.T) {
	ts := NewTimerService(nullEmitter{}, alwaysExists, nil)

	var first, second atomic.Int32
	ts.Start("ROOM01", 80*time.Millisecond, internal.PhaseWordSelection, func() {
		first.Add(1)
	})
	ts.Start("ROOM01", 50*time.Millisecond, internal.PhaseDrawing, func() {
		second.Add(1)
	})

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced timer must never fire")
	assert.Equal(t, int32(1), second.Load())
}

func TestTimerSilentWhenRoomGone(t *testing.T) {
	ts := NewTimerService(nullEmitter{}, func(string) bool { return false }, nil)

	var fired atomic.Int32
	ts.Start("ROOM01", 50*time.Millisecond, internal.PhaseResults, func() {
		fired.Add(1)
	})

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestTimerRemainingAndKind(t *testing.T) {
	ts := NewTimerService(nullEmitter{}, alwaysExists, nil)

	assert.Equal(t, time.Duration(0), ts.Remaining("ROOM01"))

	ts.Start("ROOM01", 5*time.Second, internal.PhaseDrawing, func() {})
	remaining := ts.Remaining("ROOM01")
	assert.Greater(t, remaining, 4*time.Second)
	assert.LessOrEqual(t, remaining, 5*time.Second)

	kind, ok := ts.Kind("ROOM01")
	require.True(t, ok)
	assert.Equal(t, internal.PhaseDrawing, kind)

	ts.Stop("ROOM01")
	assert.Equal(t, time.Duration(0), ts.Remaining("ROOM01"))
	_, ok = ts.Kind("ROOM01")
	assert.False(t, ok)
}

func TestTimerOnePerRoom(t *testing.T) {
	ts := NewTimerService(nullEmitter{}, alwaysExists, nil)

	var mu sync.Mutex
	var order []string
	for _, kind := range []internal.Phase{internal.PhaseWordSelection, internal.PhaseDrawing, internal.PhaseResults} {
		k := kind
		ts.Start("ROOM01", 60*time.Millisecond, k, func() {
			mu.Lock()
			order = append(order, string(k))
			mu.Unlock()
		})
	}

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"results"}, order, "only the last timer survives")
}

// The 1 Hz tick broadcasts timer_update to the room.
func TestTimerTickBroadcast(t *testing.T) {
	em := newFakeEmitter()
	ts := NewTimerService(em, alwaysExists, nil)

	ts.Start("ROOM01", 1500*time.Millisecond, internal.PhaseDrawing, func() {})
	time.Sleep(1200 * time.Millisecond)

	updates := em.byType("timer_update")
	require.NotEmpty(t, updates)

	payload, ok := updates[0].payload.(internal.TimerUpdateData)
	require.True(t, ok)
	assert.Equal(t, "ROOM01", payload.RoomID)
	assert.Equal(t, internal.PhaseDrawing, payload.Phase)
	assert.LessOrEqual(t, payload.TimeRemaining, 1)
}
