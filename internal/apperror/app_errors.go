package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")

	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is already full")
	ErrNoRoomAvailable = errors.New("no room available to join")
	ErrNotInRoom       = errors.New("player is not seated in this room")
)
