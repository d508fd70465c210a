package game

import (
	"go.uber.org/zap"

	"github.com/eehab-saadat/skribly-backend/internal"
)

// =============================================================================
// DRAWING RELAY
// =============================================================================
//
// Strokes are validated and forwarded verbatim; the server keeps no canvas.

// StrokeInput is the inbound shape shared by draw_start / draw_move /
// change_tool. Pointers distinguish absent fields from zero values.
type StrokeInput struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Color string   `json:"color"`
	Size  *float64 `json:"size"`
	Tool  string   `json:"tool"`
}

func validTool(tool string) bool {
	return tool == "brush" || tool == "eraser"
}

func validSize(size float64) bool {
	return size >= internal.MinBrushSize && size <= internal.MaxBrushSize
}

// drawerRoom authorizes a drawing event: caller must be in a room and be its
// current drawer.
func (e *Engine) drawerRoom(sessionID string) (string, error) {
	roomID, err := e.currentRoom(sessionID, "")
	if err != nil {
		return "", err
	}
	room, ok := e.reg.GetRoom(roomID)
	if !ok {
		return "", ErrRoomNotFound
	}
	if room.Game.CurrentDrawer != sessionID {
		return "", ErrNotYourDraw
	}
	return roomID, nil
}

// DrawStart relays the beginning of a stroke to everyone but the drawer.
func (e *Engine) DrawStart(sessionID string, in StrokeInput) error {
	roomID, err := e.drawerRoom(sessionID)
	if err != nil {
		return err
	}

	if in.X == nil || in.Y == nil {
		return ErrInvalidCoords
	}
	color := in.Color
	if color == "" {
		color = "#000000"
	}
	size := 5.0
	if in.Size != nil {
		size = *in.Size
	}
	if !validSize(size) {
		return ErrInvalidSize
	}
	tool := in.Tool
	if tool == "" {
		tool = "brush"
	}
	if !validTool(tool) {
		return ErrInvalidTool
	}

	e.emit.ToRoomExcept(roomID, sessionID, "draw_data", internal.DrawEventData{
		Type:      "start",
		X:         in.X,
		Y:         in.Y,
		Color:     color,
		Size:      &size,
		Tool:      tool,
		Timestamp: internal.EpochSeconds(e.clock()),
	})
	return nil
}

// DrawMove relays a stroke segment.
func (e *Engine) DrawMove(sessionID string, in StrokeInput) error {
	roomID, err := e.drawerRoom(sessionID)
	if err != nil {
		return err
	}
	if in.X == nil || in.Y == nil {
		return ErrInvalidCoords
	}

	e.emit.ToRoomExcept(roomID, sessionID, "draw_data", internal.DrawEventData{
		Type:      "move",
		X:         in.X,
		Y:         in.Y,
		Timestamp: internal.EpochSeconds(e.clock()),
	})
	return nil
}

// DrawEnd relays the end of a stroke.
func (e *Engine) DrawEnd(sessionID string) error {
	roomID, err := e.drawerRoom(sessionID)
	if err != nil {
		return err
	}

	e.emit.ToRoomExcept(roomID, sessionID, "draw_data", internal.DrawEventData{
		Type:      "end",
		Timestamp: internal.EpochSeconds(e.clock()),
	})
	return nil
}

// ClearCanvas wipes everyone's canvas. Allowed for the current drawer or the
// room host.
func (e *Engine) ClearCanvas(sessionID string) error {
	roomID, err := e.currentRoom(sessionID, "")
	if err != nil {
		return err
	}
	room, ok := e.reg.GetRoom(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	if room.Game.CurrentDrawer != sessionID && room.Host != sessionID {
		return ErrNotAllowed
	}

	e.logger.Info("canvas cleared",
		zap.String("room", roomID), zap.String("by", sessionID))

	e.emit.ToRoom(roomID, "canvas_cleared", map[string]any{
		"timestamp":  internal.EpochSeconds(e.clock()),
		"cleared_by": e.reg.Username(sessionID),
	})
	return nil
}

// ChangeTool relays the drawer's tool switch for spectator UIs.
func (e *Engine) ChangeTool(sessionID string, in StrokeInput) error {
	roomID, err := e.drawerRoom(sessionID)
	if err != nil {
		return err
	}

	if in.Tool != "" && !validTool(in.Tool) {
		return ErrInvalidTool
	}
	if in.Size != nil && !validSize(*in.Size) {
		return ErrInvalidSize
	}

	payload := map[string]any{
		"tool":  in.Tool,
		"color": in.Color,
		"user":  e.reg.Username(sessionID),
	}
	if in.Size != nil {
		payload["size"] = *in.Size
	}
	e.emit.ToRoomExcept(roomID, sessionID, "tool_changed", payload)
	return nil
}
