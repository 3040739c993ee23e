package domain

import "errors"

// Domain errors
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrInvalidPhase       = errors.New("invalid action for current phase")
	ErrInvalidTransition  = errors.New("invalid phase transition")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerEliminated   = errors.New("player is eliminated")
	ErrNotHost            = errors.New("only host can perform this action")
	ErrGameFinished       = errors.New("game is finished")
	ErrTooManyRooms       = errors.New("maximum number of rooms reached")
	ErrRoomCodeExhausted  = errors.New("failed to generate unique room code")
	ErrInternal           = errors.New("internal error")
)
