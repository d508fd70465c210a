package socket

import "errors"

var (
	errBadPayload     = errors.New("malformed event payload")
	errRoomIDRequired = errors.New("Room ID required")
	errInvalidSession = errors.New("Invalid session. Please authenticate your socket connection first.")
	errRoomGone       = errors.New("Room not found - please refresh page to create a new room")
	errJoinHTTPFirst  = errors.New("User not in room. Please join via HTTP first.")
)
