package registry

import "errors"

var (
	ErrInvalidUsername = errors.New("username must be 3-20 characters")
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrHostUnknown     = errors.New("host session unknown")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrGameInProgress  = errors.New("game already in progress")
	ErrNotPresent      = errors.New("player not in room")
	ErrInvalidSettings = errors.New("invalid room settings")
)
