package game

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// Emitter is the outbound event surface the game layer needs.
type Emitter interface {
	ToRoom(roomID, event string, payload any)
	ToSession(sessionID, event string, payload any)
	ToRoomExcept(roomID, exceptSession, event string, payload any)
}

// TimerService runs at most one phase timer per room. A timer ticks a
// timer_update to the room every second and invokes its expiry callback
// exactly once, on its own goroutine, never under a room lock. Starting a new
// timer for a room cancels the previous one; a cancelled timer's callback
// never fires.
type TimerService struct {
	mu     sync.Mutex
	timers map[string]*roomTimer

	emit       Emitter
	roomExists func(roomID string) bool
	logger     *zap.Logger
}

type roomTimer struct {
	kind      internal.Phase
	duration  time.Duration
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewTimerService(emit Emitter, roomExists func(roomID string) bool, logger *zap.Logger) *TimerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimerService{
		timers:     make(map[string]*roomTimer),
		emit:       emit,
		roomExists: roomExists,
		logger:     logger.Named("timer"),
	}
}

// Start schedules onExpire after duration, replacing any timer the room
// already has.
func (ts *TimerService) Start(roomID string, duration time.Duration, kind internal.Phase, onExpire func()) {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	t := &roomTimer{
		kind:      kind,
		duration:  duration,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	ts.mu.Lock()
	if prev, ok := ts.timers[roomID]; ok {
		prev.cancel()
	}
	ts.timers[roomID] = t
	ts.mu.Unlock()

	ts.logger.Debug("timer started",
		zap.String("room", roomID),
		zap.String("kind", string(kind)),
		zap.Duration("duration", duration))

	go ts.run(roomID, t, onExpire)
}

func (ts *TimerService) run(roomID string, t *roomTimer, onExpire func()) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !ts.roomExists(roomID) {
				ts.logger.Debug("room gone, stopping timer", zap.String("room", roomID))
				ts.dropIfCurrent(roomID, t)
				t.cancel()
				return
			}

			remaining := t.duration - time.Since(t.startedAt)
			if remaining < 0 {
				remaining = 0
			}
			ts.emit.ToRoom(roomID, "timer_update", internal.TimerUpdateData{
				TimeRemaining: int(math.Round(remaining.Seconds())),
				Phase:         t.kind,
				RoomID:        roomID,
			})

		case <-t.ctx.Done():
			current := ts.dropIfCurrent(roomID, t)
			if t.ctx.Err() != context.DeadlineExceeded || !current {
				ts.logger.Debug("timer cancelled",
					zap.String("room", roomID), zap.String("kind", string(t.kind)))
				return
			}
			if !ts.roomExists(roomID) {
				return
			}
			ts.logger.Debug("timer expired",
				zap.String("room", roomID), zap.String("kind", string(t.kind)))
			go onExpire()
			return
		}
	}
}

// dropIfCurrent removes t from the table only if it is still the room's
// active timer, reporting whether it was.
func (ts *TimerService) dropIfCurrent(roomID string, t *roomTimer) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.timers[roomID] == t {
		delete(ts.timers, roomID)
		return true
	}
	return false
}

// Stop cancels the room's timer if one is running. The pending callback will
// not fire.
func (ts *TimerService) Stop(roomID string) {
	ts.mu.Lock()
	t, ok := ts.timers[roomID]
	if ok {
		t.cancel()
		delete(ts.timers, roomID)
	}
	ts.mu.Unlock()

	if ok {
		ts.logger.Debug("timer stopped",
			zap.String("room", roomID), zap.String("kind", string(t.kind)))
	}
}

// Remaining reports time left on the room's timer, zero when none is active.
func (ts *TimerService) Remaining(roomID string) time.Duration {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t, ok := ts.timers[roomID]
	if !ok {
		return 0
	}
	remaining := t.duration - time.Since(t.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Kind reports the active timer's phase, false when none is active.
func (ts *TimerService) Kind(roomID string) (internal.Phase, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t, ok := ts.timers[roomID]
	if !ok {
		return "", false
	}
	return t.kind, true
}

// StopAll cancels every timer.
func (ts *TimerService) StopAll() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for roomID, t := range ts.timers {
		t.cancel()
		delete(ts.timers, roomID)
	}
}
